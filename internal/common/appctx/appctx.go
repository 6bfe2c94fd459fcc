// Package appctx provides context utilities for background operations that
// must outlive the request or tick that started them.
package appctx

import (
	"context"
	"time"
)

// Detached returns a context that is independent of the parent's
// cancellation but is still cancelled when stopCh closes or timeout elapses.
// Use it for background loops (scheduler fires, supervisor escalation,
// activity polls) kicked off from a request handler.
func Detached(stopCh <-chan struct{}, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
