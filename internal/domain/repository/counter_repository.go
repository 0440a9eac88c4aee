package repository

import (
	"context"
	"time"
)

// CounterRepository defines the interface for per-identity request accounting.
type CounterRepository interface {
	// Hit atomically counts one request for key in its current window and returns the
	// count including this request and the time the window resets. A window opens on the
	// first hit for a key and lasts for window.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}
