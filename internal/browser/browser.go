// Package browser holds what the page text engines share.
package browser

import (
	"context"
	"errors"
)

// ErrNotReady reports that the document body did not appear before the
// readiness timeout.
var ErrNotReady = errors.New("page not ready")

// ForwardCancel calls cancel when parent is done. The returned func stops the
// forwarding and must be called once the child work is finished.
func ForwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
