// Package ratelimit tracks per-recipient send counts within a rolling window.
package ratelimit

import (
	"context"
	"time"
)

// Window is the rolling period a recipient's send counter covers.
const Window = time.Hour

// Counter is the gate's view of per-recipient send accounting. Keys are
// recipient user ids; counters outside different keys never contend.
type Counter interface {
	// Peek returns the number of sends recorded in the current window
	// without charging one.
	Peek(ctx context.Context, key string) (int, error)

	// Record charges one send, starting a fresh window when none is active.
	Record(ctx context.Context, key string) error

	// Active returns how many recipients currently hold a live window.
	Active(ctx context.Context) (int, error)
}
