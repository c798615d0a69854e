// Package dispatcher fans company records out to extractors under a fixed concurrency cap.
package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/company-profiler/internal/company"
)

// Mode selects how records are released to extractors.
type Mode string

// Supported scheduling modes.
const (
	// ModeRounds starts at most Limit records at a time and waits for the whole
	// round before starting the next.
	ModeRounds Mode = "rounds"
	// ModePool keeps Limit workers busy, starting the next record as soon as a
	// slot frees up.
	ModePool Mode = "pool"
)

// ParseMode validates a configured mode string. Empty means ModeRounds.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case "", ModeRounds:
		return ModeRounds, nil
	case ModePool:
		return ModePool, nil
	default:
		return "", fmt.Errorf("unknown dispatch mode %q", raw)
	}
}

// Func processes one record. It must not return until the record is fully
// handled; the dispatcher never sees its errors.
type Func func(ctx context.Context, record company.Record)

// Dispatcher runs a Func over a batch of records with at most Limit active at once.
type Dispatcher struct {
	limit int
	mode  Mode
}

// inflight counts records in flight during one Run.
type inflight struct {
	active atomic.Int64
	peak   atomic.Int64
}

// New creates a Dispatcher. Limit must be >= 1.
func New(limit int, mode Mode) (*Dispatcher, error) {
	if limit < 1 {
		return nil, fmt.Errorf("concurrency limit must be >= 1, got %d", limit)
	}
	if mode == "" {
		mode = ModeRounds
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	return &Dispatcher{limit: limit, mode: mode}, nil
}

// Limit returns the concurrency cap.
func (d *Dispatcher) Limit() int {
	return d.limit
}

// Mode returns the scheduling mode.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Run processes every record and returns once all of them have finished. It
// reports the highest number of records that were in flight at once during
// this call. An empty batch returns immediately with zero.
func (d *Dispatcher) Run(ctx context.Context, records []company.Record, fn Func) int {
	if len(records) == 0 {
		return 0
	}
	var counts inflight
	switch d.mode {
	case ModePool:
		d.runPool(ctx, records, counts.wrap(fn))
	default:
		d.runRounds(ctx, records, counts.wrap(fn))
	}
	return int(counts.peak.Load())
}

func (d *Dispatcher) runRounds(ctx context.Context, records []company.Record, fn Func) {
	for start := 0; start < len(records); start += d.limit {
		end := min(start+d.limit, len(records))

		// Fresh group per round; Wait is the round barrier.
		var g errgroup.Group
		for _, record := range records[start:end] {
			g.Go(func() error {
				fn(ctx, record)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (d *Dispatcher) runPool(ctx context.Context, records []company.Record, fn Func) {
	var g errgroup.Group
	g.SetLimit(d.limit)
	for _, record := range records {
		g.Go(func() error {
			fn(ctx, record)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *inflight) wrap(fn Func) Func {
	return func(ctx context.Context, record company.Record) {
		now := c.active.Add(1)
		for {
			peak := c.peak.Load()
			if now <= peak || c.peak.CompareAndSwap(peak, now) {
				break
			}
		}
		defer c.active.Add(-1)
		fn(ctx, record)
	}
}
