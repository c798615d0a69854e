package company

import (
	"context"
	"io"
	"time"
)

// Source reads the batch of companies still missing a description.
type Source interface {
	FetchBatch(ctx context.Context, limit int) ([]Record, error)
}

// Writer persists descriptions. Writing the same id twice overwrites.
type Writer interface {
	UpdateDescription(ctx context.Context, id int64, text string) error
}

// Store is a record store that is both Source and Writer.
type Store interface {
	Source
	Writer
	Close() error
}

// Browser opens isolated automation sessions. Sessions are never shared
// between extractors.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Session drives one page. It is not safe for concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context, timeout time.Duration) error
	ScrollToBottom(ctx context.Context) error
	// Texts returns the visible text of every block-level node, in document order.
	Texts(ctx context.Context) ([]string, error)
	Close() error
}

// Enricher turns raw page text into the description that gets persisted.
type Enricher interface {
	Enrich(ctx context.Context, text string) (string, error)
}

// ResultSink accepts envelopes from extractors without blocking.
type ResultSink interface {
	Enqueue(env Envelope) error
}

// ResultSource yields envelopes to the single aggregator until the channel is closed.
type ResultSource interface {
	Dequeue(ctx context.Context) (Envelope, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
