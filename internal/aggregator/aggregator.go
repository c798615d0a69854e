// Package aggregator is the single consumer of extraction results. It enriches
// and persists successful outcomes one at a time.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-profiler/internal/company"
	"github.com/JakeFAU/company-profiler/internal/logging"
	"github.com/JakeFAU/company-profiler/internal/metrics"
	"github.com/JakeFAU/company-profiler/internal/results"
	"github.com/JakeFAU/company-profiler/internal/storage"
)

// Config controls optional side outputs.
type Config struct {
	// Topic receives one notification per persisted description. Empty disables it.
	Topic string
}

// Stats counts what happened to the envelopes of one run.
type Stats struct {
	Received        int `json:"received"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
	Persisted       int `json:"persisted"`
	PersistErrors   int `json:"persist_errors"`
	Enriched        int `json:"enriched"`
	EnrichFallbacks int `json:"enrich_fallbacks"`
	Archived        int `json:"archived"`
	Notified        int `json:"notified"`
}

// Notification is published after a description is persisted.
type Notification struct {
	RunID       string    `json:"run_id"`
	CompanyID   int64     `json:"company_id"`
	URL         string    `json:"url"`
	Enriched    bool      `json:"enriched"`
	ArchivedURI string    `json:"archived_uri,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Aggregator drains a result source into the record store.
type Aggregator struct {
	writer    company.Writer
	enricher  company.Enricher
	archive   *storage.Archive
	publisher company.Publisher
	clock     company.Clock
	metrics   *metrics.Metrics
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Aggregator. enricher, archive, and publisher may be nil.
func New(
	writer company.Writer,
	enricher company.Enricher,
	archive *storage.Archive,
	publisher company.Publisher,
	clock company.Clock,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		writer:    writer,
		enricher:  enricher,
		archive:   archive,
		publisher: publisher,
		clock:     clock,
		metrics:   m,
		cfg:       cfg,
		logger:    logging.Named(logger, "aggregator"),
	}
}

// Run consumes envelopes until the source reports results.ErrClosed. It only
// returns an error when the source fails or ctx ends first.
func (a *Aggregator) Run(ctx context.Context, runID string, src company.ResultSource) (Stats, error) {
	var stats Stats
	seen := make(map[int64]struct{})
	for {
		env, err := src.Dequeue(ctx)
		if errors.Is(err, results.ErrClosed) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("aggregator dequeue: %w", err)
		}
		stats.Received++
		if _, dup := seen[env.ID]; dup {
			stats.Skipped++
			a.logger.Warn("duplicate result ignored", logging.Company(env.ID, env.URL)...)
			continue
		}
		seen[env.ID] = struct{}{}
		a.handle(ctx, runID, env, &stats)
	}
}

func (a *Aggregator) handle(ctx context.Context, runID string, env company.Envelope, stats *Stats) {
	fields := logging.Company(env.ID, env.URL)
	if !env.Outcome.Success() {
		stats.Failed++
		a.logger.Warn("extraction failed, skipping", append(fields, zap.Error(env.Outcome.Err()))...)
		return
	}
	text := env.Outcome.Text()
	if text == "" {
		stats.Skipped++
		a.metrics.ObservePersist("skipped")
		a.logger.Warn("no text extracted, skipping", fields...)
		return
	}

	archivedURI := a.archiveText(ctx, runID, env, stats)
	description, enriched := a.enrich(ctx, env, text, stats)

	if err := a.writer.UpdateDescription(ctx, env.ID, description); err != nil {
		stats.PersistErrors++
		a.metrics.ObservePersist("error")
		a.logger.Error("error saving company", append(fields, zap.Error(err))...)
		return
	}
	stats.Persisted++
	a.metrics.ObservePersist("ok")
	a.logger.Info("updated company", append(fields, zap.Bool("enriched", enriched))...)

	a.notify(ctx, Notification{
		RunID:       runID,
		CompanyID:   env.ID,
		URL:         env.URL,
		Enriched:    enriched,
		ArchivedURI: archivedURI,
		ProcessedAt: a.now(),
	}, stats)
}

func (a *Aggregator) archiveText(ctx context.Context, runID string, env company.Envelope, stats *Stats) string {
	if a.archive == nil {
		return ""
	}
	uri, err := a.archive.Put(ctx, runID, env.ID, env.Outcome.Text())
	if err != nil {
		a.logger.Warn("archive text failed", append(logging.Company(env.ID, env.URL), zap.Error(err))...)
		return ""
	}
	stats.Archived++
	return uri
}

// enrich returns the description to persist, falling back to the raw text.
func (a *Aggregator) enrich(ctx context.Context, env company.Envelope, text string, stats *Stats) (string, bool) {
	if a.enricher == nil {
		a.metrics.ObserveEnrichment("disabled")
		return text, false
	}
	enriched, err := a.enricher.Enrich(ctx, text)
	if err != nil || enriched == "" {
		stats.EnrichFallbacks++
		a.metrics.ObserveEnrichment("fallback")
		a.logger.Warn("enrichment failed, using raw text", append(logging.Company(env.ID, env.URL), zap.Error(err))...)
		return text, false
	}
	stats.Enriched++
	a.metrics.ObserveEnrichment("ok")
	return enriched, true
}

func (a *Aggregator) notify(ctx context.Context, n Notification, stats *Stats) {
	if a.publisher == nil || a.cfg.Topic == "" {
		return
	}
	id, err := a.publisher.Publish(ctx, a.cfg.Topic, n)
	if err != nil {
		a.logger.Warn("publish notification failed", append(logging.Company(n.CompanyID, n.URL), zap.Error(err))...)
		return
	}
	stats.Notified++
	a.logger.Debug("notification published", append(logging.Company(n.CompanyID, n.URL), zap.String("message_id", id))...)
}

func (a *Aggregator) now() time.Time {
	if a.clock == nil {
		return time.Now().UTC()
	}
	return a.clock.Now()
}
