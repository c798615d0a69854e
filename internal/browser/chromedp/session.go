// Package chromebrowser drives headless Chrome through chromedp. Every session
// owns its own Chrome process so no state leaks between companies.
package chromebrowser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-profiler/internal/browser"
	"github.com/JakeFAU/company-profiler/internal/company"
)

const (
	scrollScript = `window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`
	textsScript  = `Array.from(document.querySelectorAll('div, p')).map(function (e) { return e.innerText || ''; })`
)

// Config controls how Chrome is launched.
type Config struct {
	Headless        bool
	NoSandbox       bool
	DisableGPU      bool
	UserAgent       string
	Proxy           string
	ExecPath        string
	NavigateTimeout time.Duration
}

// Browser implements company.Browser.
type Browser struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Browser. Chrome is not started until Open is called.
func New(cfg Config, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{cfg: cfg, logger: logger.Named("chromedp")}
}

// Open launches an isolated Chrome instance and returns a session bound to it.
func (b *Browser) Open(ctx context.Context) (company.Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(b.logger.Sugar().Debugf),
		chromedp.WithErrorf(b.logger.Sugar().Debugf),
	)

	s := &session{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		navTimeout:    b.cfg.NavigateTimeout,
	}

	// The first Run must use the browser context itself; a derived context
	// would tie the Chrome process to its lifetime.
	stop := browser.ForwardCancel(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stop()
	if err == nil {
		err = s.run(ctx, b.cfg.NavigateTimeout, b.setupAction())
	}
	if err != nil {
		s.Close() //nolint:errcheck // startup already failed
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return s, nil
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if b.cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}
	if b.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if b.cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(b.cfg.Proxy))
	}
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}
	return opts
}

func (b *Browser) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

type session struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	navTimeout    time.Duration
	closeOnce     sync.Once
	closeErr      error
}

func (s *session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.navTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *session) WaitReady(ctx context.Context, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitReady("body", chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: body missing after %s", browser.ErrNotReady, timeout)
	}
	return fmt.Errorf("wait for body: %w", err)
}

func (s *session) ScrollToBottom(ctx context.Context) error {
	var height float64
	if err := s.run(ctx, 0, chromedp.Evaluate(scrollScript, &height)); err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

func (s *session) Texts(ctx context.Context) ([]string, error) {
	var texts []string
	if err := s.run(ctx, 0, chromedp.Evaluate(textsScript, &texts)); err != nil {
		return nil, fmt.Errorf("collect text: %w", err)
	}
	return texts, nil
}

// Close shuts Chrome down and releases the allocator. Safe to call repeatedly.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close chrome: %w", err)
		}
		s.browserCancel()
		s.allocCancel()
	})
	return s.closeErr
}

// run executes actions against the session's tab. A zero timeout means the
// actions are bounded only by ctx.
func (s *session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		taskCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		taskCtx, cancel = context.WithTimeout(s.browserCtx, timeout)
	} else {
		taskCtx, cancel = context.WithCancel(s.browserCtx)
	}
	defer cancel()

	stop := browser.ForwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}
