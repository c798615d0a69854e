// Package extractor turns one company record into exactly one result envelope.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-profiler/internal/company"
	"github.com/JakeFAU/company-profiler/internal/logging"
	"github.com/JakeFAU/company-profiler/internal/metrics"
	"github.com/JakeFAU/company-profiler/internal/telemetry"
)

// ErrPanic wraps panics recovered from the browser layer.
var ErrPanic = errors.New("browser panic")

// Config holds the per-page timeouts.
type Config struct {
	ReadyTimeout time.Duration
}

// Extractor drives a browser session for each record it is given.
type Extractor struct {
	browser company.Browser
	cfg     Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New wires an Extractor. A zero ReadyTimeout defaults to 10s.
func New(browser company.Browser, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Extractor {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 10 * time.Second
	}
	return &Extractor{
		browser: browser,
		cfg:     cfg,
		metrics: m,
		logger:  logging.Named(logger, "extractor"),
	}
}

// Run extracts rec and enqueues exactly one envelope on sink before returning.
func (e *Extractor) Run(ctx context.Context, rec company.Record, sink company.ResultSink) {
	ctx, span := telemetry.Tracer().Start(ctx, "extractor.extract", trace.WithAttributes(
		attribute.Int64("company.id", rec.ID),
		attribute.String("company.url", rec.URL),
	))
	defer span.End()

	e.metrics.IncActiveExtractors()
	start := time.Now()
	outcome := e.Extract(ctx, rec)
	elapsed := time.Since(start)
	e.metrics.DecActiveExtractors()
	e.metrics.ObserveExtraction(outcome.Label(), elapsed)
	if !outcome.Success() {
		span.SetStatus(codes.Error, outcome.Err().Error())
	}

	fields := append(logging.Company(rec.ID, rec.URL), zap.Duration("duration", elapsed))
	if outcome.Success() {
		e.logger.Debug("extraction succeeded", append(fields, zap.Int("chars", len(outcome.Text())))...)
	} else {
		e.logger.Warn("extraction failed", append(fields, zap.Error(outcome.Err()))...)
	}

	env := company.Envelope{ID: rec.ID, URL: rec.URL, Outcome: outcome}
	if err := sink.Enqueue(env); err != nil {
		e.logger.Error("enqueue result", append(fields, zap.Error(err))...)
	}
}

// Extract performs the browser steps for rec. It never panics.
func (e *Extractor) Extract(ctx context.Context, rec company.Record) (outcome company.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = company.Failed(fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	text, err := e.extract(ctx, rec)
	if err != nil {
		return company.Failed(err)
	}
	return company.Succeeded(text)
}

func (e *Extractor) extract(ctx context.Context, rec company.Record) (string, error) {
	if rec.URL == "" {
		return "", fmt.Errorf("company %d has no homepage url", rec.ID)
	}
	session, err := e.browser.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			e.logger.Debug("close session", append(logging.Company(rec.ID, rec.URL), zap.Error(cerr))...)
		}
	}()

	if err := session.Navigate(ctx, rec.URL); err != nil {
		return "", err
	}
	if err := session.WaitReady(ctx, e.cfg.ReadyTimeout); err != nil {
		return "", err
	}
	if err := session.ScrollToBottom(ctx); err != nil {
		return "", err
	}
	texts, err := session.Texts(ctx)
	if err != nil {
		return "", err
	}
	return Sanitize(JoinTexts(texts)), nil
}
