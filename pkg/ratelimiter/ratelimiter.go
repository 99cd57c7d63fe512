package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Limiter grants tokens per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Store keeps bucket state. A store never consumes more tokens than
// are available: a denied call returns the shortfall as a negative
// remaining count and leaves the bucket unchanged.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config, now time.Time) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Bucket is a token bucket Limiter over a Store.
type Bucket struct {
	store  Store
	config Config
	now    func() time.Time
}

type BucketOption func(*Bucket)

func WithClock(now func() time.Time) BucketOption {
	return func(b *Bucket) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBucket(store Store, cfg Config, opts ...BucketOption) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Bucket{store: store, config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.config, b.now())
	if err != nil {
		return nil, err
	}
	return &Result{Limit: b.config.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}

func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}
