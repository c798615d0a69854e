// Package results implements the hand-off queue between extractors and the aggregator.
package results

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/company-profiler/internal/company"
)

// ErrClosed is returned by Dequeue once every envelope has been handed out and
// the queue is closed, and by Enqueue after Close.
var ErrClosed = errors.New("result queue closed")

// Queue is an unbounded multi-producer, single-consumer queue. Enqueue never
// blocks; order is FIFO per producer and unspecified across producers.
type Queue struct {
	mu     sync.Mutex
	items  []company.Envelope
	closed bool
	ready  chan struct{}
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

// Enqueue appends an envelope. It fails only after Close.
func (q *Queue) Enqueue(env company.Envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("enqueue company %d: %w", env.ID, ErrClosed)
	}
	q.items = append(q.items, env)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Dequeue pops the oldest envelope, blocking until one is available. After
// Close it keeps returning buffered envelopes, then ErrClosed. Only one
// goroutine may call Dequeue.
func (q *Queue) Dequeue(ctx context.Context) (company.Envelope, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.items[0] = company.Envelope{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return env, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return company.Envelope{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return company.Envelope{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.ready:
		}
	}
}

// Close marks the end of input. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Len reports the number of buffered envelopes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
