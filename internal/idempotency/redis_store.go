package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifyhub/internal/notification"
)

const DefaultKeyPrefix = "idempotency:"

type RedisStore struct {
	client redis.Cmdable
	prefix string
}

type RedisOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context, requestID string) (*notification.Receipt, error) {
	if requestID == "" {
		return nil, ErrEmptyKey
	}

	raw, err := s.client.Get(ctx, s.key(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	var rec notification.Receipt
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Join(ErrCorruptEntry, err)
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, requestID string, rec notification.Receipt, ttl time.Duration) error {
	if requestID == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(requestID), raw, ttl).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) key(requestID string) string {
	return s.prefix + requestID
}
