package idempotency

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifyhub/internal/notification"
)

// DefaultTTL is how long a receipt is remembered.
const DefaultTTL = 24 * time.Hour

// Store maps request ids to the receipt first issued for them.
type Store interface {
	// Get returns nil, nil when requestID has not been seen.
	Get(ctx context.Context, requestID string) (*notification.Receipt, error)
	// Put overwrites any existing entry. A ttl <= 0 uses DefaultTTL.
	Put(ctx context.Context, requestID string, rec notification.Receipt, ttl time.Duration) error
}
