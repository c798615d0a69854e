package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-profiler/internal/aggregator"
	chromebrowser "github.com/JakeFAU/company-profiler/internal/browser/chromedp"
	staticbrowser "github.com/JakeFAU/company-profiler/internal/browser/static"
	"github.com/JakeFAU/company-profiler/internal/clock/system"
	"github.com/JakeFAU/company-profiler/internal/company"
	"github.com/JakeFAU/company-profiler/internal/config"
	"github.com/JakeFAU/company-profiler/internal/dispatcher"
	"github.com/JakeFAU/company-profiler/internal/enrich"
	anthropicenrich "github.com/JakeFAU/company-profiler/internal/enrich/anthropic"
	geminienrich "github.com/JakeFAU/company-profiler/internal/enrich/gemini"
	"github.com/JakeFAU/company-profiler/internal/extractor"
	"github.com/JakeFAU/company-profiler/internal/id/uuid"
	"github.com/JakeFAU/company-profiler/internal/metrics"
	"github.com/JakeFAU/company-profiler/internal/pipeline"
	pubsubpublisher "github.com/JakeFAU/company-profiler/internal/publisher/pubsub"
	"github.com/JakeFAU/company-profiler/internal/server"
	"github.com/JakeFAU/company-profiler/internal/storage"
	gcsstorage "github.com/JakeFAU/company-profiler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/company-profiler/internal/storage/local"
	pgstore "github.com/JakeFAU/company-profiler/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/company-profiler/internal/storage/sqlite"
	"github.com/JakeFAU/company-profiler/internal/telemetry"
)

// app holds one run's dependencies and the order to release them in.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	driver  *pipeline.Driver
	ops     *server.Server
	closers []func() error
}

// build constructs every component named by cfg. On error, anything already
// opened is closed before returning.
func build(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	tp, err := telemetry.InitTracerProvider(ctx, "company-profiler")
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return tp.Shutdown(context.Background()) })

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		a.ops = server.New(reg, logger)
	}

	store, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	browser, err := buildBrowser(cfg.Browser, logger)
	if err != nil {
		return nil, err
	}

	enricher, err := buildEnricher(ctx, cfg.Enrich, logger)
	if err != nil {
		return nil, err
	}

	archive, closeArchive, err := buildArchive(ctx, cfg.Archive)
	if err != nil {
		return nil, err
	}
	if closeArchive != nil {
		a.closers = append(a.closers, closeArchive)
	}

	publisher, closePublisher, err := buildPublisher(ctx, cfg.Notify)
	if err != nil {
		return nil, err
	}
	if closePublisher != nil {
		a.closers = append(a.closers, closePublisher)
	}

	mode, err := dispatcher.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}
	disp, err := dispatcher.New(cfg.Pipeline.Concurrency, mode)
	if err != nil {
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}

	clock := system.New()
	ex := extractor.New(browser, extractor.Config{ReadyTimeout: cfg.Browser.ReadyTimeout}, m, logger)
	agg := aggregator.New(store, enricher, archive, publisher, clock, m, aggregator.Config{Topic: cfg.Notify.Topic}, logger)

	a.driver, err = pipeline.NewDriver(store, disp, ex, agg, uuid.New(), clock, m,
		pipeline.Config{BatchSize: cfg.Pipeline.BatchSize}, logger)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	return a, nil
}

// Run processes one batch, serving the ops endpoints while it is in progress.
func (a *app) Run(ctx context.Context) (pipeline.Report, error) {
	if a.ops != nil {
		if _, err := a.ops.Start(a.cfg.Metrics.Addr); err != nil {
			return pipeline.Report{}, fmt.Errorf("start ops server: %w", err)
		}
		a.ops.SetReady(true)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.ops.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("ops server shutdown", zap.Error(err))
			}
		}()
	}
	return a.driver.Run(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (company.Store, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		store, err := sqlitestore.Open(cfg.DSN, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.StorePostgres:
		store, err := pgstore.NewCompanyStore(ctx, pgstore.CompanyStoreConfig{
			DSN:      cfg.DSN,
			Table:    cfg.Table,
			MaxConns: int32(cfg.MaxConns), //nolint:gosec // validated small pool size
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func buildBrowser(cfg config.BrowserConfig, logger *zap.Logger) (company.Browser, error) {
	if cfg.Engine == config.EngineStatic {
		b, err := staticbrowser.New(staticbrowser.Config{
			UserAgent: cfg.UserAgent,
			Proxy:     cfg.Proxy,
			Timeout:   cfg.NavigateTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init static browser: %w", err)
		}
		return b, nil
	}
	return chromebrowser.New(chromebrowser.Config{
		Headless:        cfg.Headless,
		NoSandbox:       cfg.NoSandbox,
		DisableGPU:      cfg.DisableGPU,
		UserAgent:       cfg.UserAgent,
		Proxy:           cfg.Proxy,
		ExecPath:        cfg.ExecPath,
		NavigateTimeout: cfg.NavigateTimeout,
	}, logger), nil
}

// buildEnricher returns nil when enrichment is disabled.
func buildEnricher(ctx context.Context, cfg config.EnrichConfig, logger *zap.Logger) (company.Enricher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var analyzer enrich.Analyzer
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := geminienrich.New(ctx, geminienrich.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: int32(cfg.MaxTokens), //nolint:gosec // validated token budget
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini analyzer: %w", err)
		}
		analyzer = g
	default:
		c, err := anthropicenrich.New(anthropicenrich.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: int64(cfg.MaxTokens),
		})
		if err != nil {
			return nil, fmt.Errorf("init anthropic analyzer: %w", err)
		}
		analyzer = c
	}
	return enrich.NewService(analyzer, enrich.Options{
		MaxInputChars: cfg.MaxInputChars,
		Timeout:       cfg.Timeout,
	}, logger), nil
}

// buildArchive returns a nil archive when archiving is disabled.
func buildArchive(ctx context.Context, cfg config.ArchiveConfig) (*storage.Archive, func() error, error) {
	var (
		blobs   company.BlobStore
		closeFn func() error
	)
	switch cfg.Driver {
	case config.DriverLocal:
		local, err := localstorage.New(localstorage.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local archive: %w", err)
		}
		blobs = local
	case config.DriverGCS:
		gcs, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs archive: %w", err)
		}
		blobs, closeFn = gcs, gcs.Close
	default:
		return nil, nil, nil
	}
	archive, err := storage.NewArchive(blobs, cfg.Prefix)
	if err != nil {
		if closeFn != nil {
			_ = closeFn()
		}
		return nil, nil, err
	}
	return archive, closeFn, nil
}

// buildPublisher returns a nil publisher when notifications are disabled.
func buildPublisher(ctx context.Context, cfg config.NotifyConfig) (company.Publisher, func() error, error) {
	if cfg.Driver != config.DriverPubSub {
		return nil, nil, nil
	}
	pub, err := pubsubpublisher.New(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	return pub, pub.Close, nil
}
