// Package pipeline runs one batch end to end: fetch, extract, aggregate.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-profiler/internal/aggregator"
	"github.com/JakeFAU/company-profiler/internal/company"
	"github.com/JakeFAU/company-profiler/internal/dispatcher"
	"github.com/JakeFAU/company-profiler/internal/logging"
	"github.com/JakeFAU/company-profiler/internal/metrics"
	"github.com/JakeFAU/company-profiler/internal/results"
	"github.com/JakeFAU/company-profiler/internal/telemetry"
)

// RecordRunner extracts one record and enqueues its envelope on sink.
type RecordRunner interface {
	Run(ctx context.Context, rec company.Record, sink company.ResultSink)
}

// Consumer drains envelopes until the source is closed.
type Consumer interface {
	Run(ctx context.Context, runID string, src company.ResultSource) (aggregator.Stats, error)
}

// Config controls batch sizing.
type Config struct {
	BatchSize int
}

// Report summarizes one run.
type Report struct {
	RunID           string           `json:"run_id"`
	Records         int              `json:"records"`
	PeakConcurrency int              `json:"peak_concurrency"`
	Stats           aggregator.Stats `json:"stats"`
	Duration        time.Duration    `json:"duration"`
}

// Driver wires the source, dispatcher, extractor, and aggregator together.
type Driver struct {
	source     company.Source
	dispatcher *dispatcher.Dispatcher
	extractor  RecordRunner
	consumer   Consumer
	ids        company.IDGenerator
	clock      company.Clock
	metrics    *metrics.Metrics
	cfg        Config
	logger     *zap.Logger
}

// NewDriver constructs a Driver.
func NewDriver(
	source company.Source,
	disp *dispatcher.Dispatcher,
	extractor RecordRunner,
	consumer Consumer,
	ids company.IDGenerator,
	clock company.Clock,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) (*Driver, error) {
	if source == nil || disp == nil || extractor == nil || consumer == nil || ids == nil || clock == nil {
		return nil, fmt.Errorf("pipeline: source, dispatcher, extractor, consumer, ids, and clock are required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("pipeline: batch size must be > 0")
	}
	return &Driver{
		source:     source,
		dispatcher: disp,
		extractor:  extractor,
		consumer:   consumer,
		ids:        ids,
		clock:      clock,
		metrics:    m,
		cfg:        cfg,
		logger:     logging.Named(logger, "pipeline"),
	}, nil
}

// Run processes one batch. A failing source is logged and treated as an
// empty batch. The returned error is non-nil only if the run could not start
// or the aggregator stopped before draining every envelope.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	start := d.clock.Now()
	runID, err := d.ids.NewID()
	if err != nil {
		d.metrics.ObserveRun("aborted")
		return Report{}, fmt.Errorf("pipeline: %w", err)
	}
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()
	logger := d.logger.With(zap.String("run_id", runID))
	report := Report{RunID: runID}

	records, err := d.source.FetchBatch(ctx, d.cfg.BatchSize)
	if err != nil {
		logger.Error("error fetching companies", zap.Error(err))
		records = nil
	}
	report.Records = len(records)
	if len(records) == 0 {
		logger.Warn("no companies to process")
		d.metrics.ObserveRun("empty")
		report.Duration = d.clock.Now().Sub(start)
		return report, nil
	}

	logger.Info("processing companies",
		zap.Int("count", len(records)),
		zap.Int("concurrency", d.dispatcher.Limit()),
		zap.String("mode", string(d.dispatcher.Mode())),
	)

	queue := results.NewQueue()
	type consumed struct {
		stats aggregator.Stats
		err   error
	}
	done := make(chan consumed, 1)
	go func() {
		stats, err := d.consumer.Run(ctx, runID, queue)
		done <- consumed{stats: stats, err: err}
	}()

	report.PeakConcurrency = d.dispatcher.Run(ctx, records, func(ctx context.Context, rec company.Record) {
		d.extractor.Run(ctx, rec, queue)
	})
	queue.Close()
	out := <-done

	report.Stats = out.stats
	report.Duration = d.clock.Now().Sub(start)
	if out.err != nil {
		d.metrics.ObserveRun("aborted")
		span.SetStatus(codes.Error, out.err.Error())
		logger.Error("run aborted", zap.Error(out.err), zap.Int("undelivered", queue.Len()))
		return report, fmt.Errorf("pipeline: %w", out.err)
	}

	d.metrics.ObserveRun("completed")
	span.SetAttributes(attribute.Int("records", report.Records), attribute.Int("persisted", out.stats.Persisted))
	logger.Info("processing completed",
		zap.Int("records", report.Records),
		zap.Int("failed", out.stats.Failed),
		zap.Int("persisted", out.stats.Persisted),
		zap.Int("persist_errors", out.stats.PersistErrors),
		zap.Int("enriched", out.stats.Enriched),
		zap.Int("peak_concurrency", report.PeakConcurrency),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}
