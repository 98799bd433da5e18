// Package ports defines the interfaces of the usage limiter.
package ports

import (
	"context"
	"time"

	"paythru/internal/ratelimit/models"
)

// UsageStore keeps fixed-window analysis counters.
type UsageStore interface {
	// Increment consumes one unit of key's allowance if any is left. A
	// denied call does not count.
	Increment(ctx context.Context, key string, limit int, window time.Duration) (*models.UsageResult, error)

	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}

// UsageLimiter decides whether a caller may run another analysis.
type UsageLimiter interface {
	CheckAndIncrement(ctx context.Context, identity string) (*models.UsageResult, error)
}
