// Package staticbrowser extracts page text with a plain HTTP fetch through
// Colly. It runs no JavaScript, so lazy content never appears; it exists for
// hosts without Chrome.
package staticbrowser

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/company-profiler/internal/browser"
	"github.com/JakeFAU/company-profiler/internal/company"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Proxy     string
	Timeout   time.Duration
}

// Browser implements company.Browser on top of Colly.
type Browser struct {
	cfg       Config
	transport http.RoundTripper
}

// New builds a Browser sharing one pooled transport across sessions. The
// transport is never modified after New returns.
func New(cfg Config) (*Browser, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	transport := newHTTPTransport()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("proxy url %q must include scheme and host", cfg.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &Browser{cfg: cfg, transport: transport}, nil
}

// Open returns a session with a fresh collector.
func (b *Browser) Open(_ context.Context) (company.Session, error) {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(b.transport)
	c.SetRequestTimeout(b.cfg.Timeout)
	if b.cfg.UserAgent != "" {
		c.UserAgent = b.cfg.UserAgent
	}

	s := &session{collector: c}
	c.OnHTML("html", s.capture)
	c.OnError(func(_ *colly.Response, err error) {
		s.fetchErr = err
	})
	return s, nil
}

type session struct {
	collector *colly.Collector
	hasBody   bool
	texts     []string
	fetchErr  error
	visited   bool
}

func (s *session) capture(e *colly.HTMLElement) {
	s.hasBody = e.DOM.Find("body").Length() > 0
	e.ForEach("div, p", func(_ int, el *colly.HTMLElement) {
		s.texts = append(s.texts, el.Text)
	})
}

func (s *session) Navigate(ctx context.Context, rawURL string) error {
	s.collector.Context = ctx
	err := s.collector.Visit(rawURL)
	s.visited = true
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("colly fetch canceled: %w", ctxErr)
	}
	if err != nil {
		return fmt.Errorf("colly visit failed: %w", err)
	}
	if s.fetchErr != nil {
		return fmt.Errorf("colly response failed: %w", s.fetchErr)
	}
	return nil
}

// WaitReady checks the parsed document; the fetch already completed.
func (s *session) WaitReady(_ context.Context, _ time.Duration) error {
	if !s.visited || !s.hasBody {
		return fmt.Errorf("%w: no body in response", browser.ErrNotReady)
	}
	return nil
}

func (s *session) ScrollToBottom(context.Context) error { return nil }

func (s *session) Texts(context.Context) ([]string, error) {
	out := make([]string, 0, len(s.texts))
	for _, text := range s.texts {
		out = append(out, strings.TrimSpace(text))
	}
	return out, nil
}

func (s *session) Close() error { return nil }

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
