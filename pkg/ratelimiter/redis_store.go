package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "ratelimit:"

// tokenBucketScript mirrors MemoryStore.ConsumeTokens on a hash holding
// the token count and the last refill time in milliseconds.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local n = tonumber(ARGV[5])
local ttl = tonumber(ARGV[6])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
	tokens = capacity
	last = now
end

local intervals = math.floor((now - last) / interval)
local cap_intervals = math.floor(capacity / rate) + 1
if intervals > cap_intervals then
	intervals = cap_intervals
end
if intervals > 0 then
	tokens = math.min(tokens + intervals * rate, capacity)
	last = now
end

local remaining
if tokens < n then
	remaining = tokens - n
else
	tokens = tokens - n
	remaining = tokens
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last', last)
redis.call('PEXPIRE', KEYS[1], ttl)
return {remaining, last + interval}
`)

// RedisStore shares buckets between gateway instances.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

type RedisStoreOption func(*RedisStore)

func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

func NewRedisStore(client redis.Cmdable, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config, now time.Time) (int, time.Time, error) {
	vals, err := tokenBucketScript.Run(ctx, s.client, []string{s.prefix + key},
		cfg.Capacity,
		cfg.RefillRate,
		cfg.RefillInterval.Milliseconds(),
		now.UnixMilli(),
		tokens,
		cfg.ttl().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, vals)
	}
	return int(vals[0]), time.UnixMilli(vals[1]), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
