package idempotency_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/idempotency"
	"github.com/dmitrymomot/notifyhub/internal/notification"
)

// fakeRedis implements the GET and SET subset of redis.Cmdable.
type fakeRedis struct {
	redis.Cmdable

	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

var receipt = notification.Receipt{
	NotificationID: "0b0e7d1e-5c4f-4a36-9b1c-6a5f0e1b2c3d",
	Status:         notification.StatusPending,
	RequestID:      "r1",
}

func TestRedisStore_MissThenHit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := newFakeRedis()
	store := idempotency.NewRedisStore(fake)

	rec, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Put(ctx, "r1", receipt, time.Hour))
	assert.Equal(t, time.Hour, fake.ttls["idempotency:r1"])
	assert.JSONEq(t,
		`{"notification_id":"0b0e7d1e-5c4f-4a36-9b1c-6a5f0e1b2c3d","status":"pending","request_id":"r1"}`,
		fake.data["idempotency:r1"])

	rec, err = store.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, receipt, *rec)
}

func TestRedisStore_PrefixAndDefaultTTL(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	store := idempotency.NewRedisStore(fake, idempotency.WithKeyPrefix("nh:idem:"))

	require.NoError(t, store.Put(context.Background(), "r1", receipt, 0))
	assert.Equal(t, idempotency.DefaultTTL, fake.ttls["nh:idem:r1"])
}

func TestRedisStore_BackendErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cause := errors.New("connection refused")
	fake := newFakeRedis()
	fake.err = cause
	store := idempotency.NewRedisStore(fake)

	_, err := store.Get(ctx, "r1")
	assert.ErrorIs(t, err, idempotency.ErrUnavailable)
	assert.ErrorIs(t, err, cause)

	err = store.Put(ctx, "r1", receipt, time.Minute)
	assert.ErrorIs(t, err, idempotency.ErrUnavailable)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.data["idempotency:r1"] = "{not json"
	store := idempotency.NewRedisStore(fake)

	_, err := store.Get(context.Background(), "r1")
	assert.ErrorIs(t, err, idempotency.ErrCorruptEntry)
}

func TestRedisStore_EmptyKey(t *testing.T) {
	t.Parallel()

	store := idempotency.NewRedisStore(newFakeRedis())
	_, err := store.Get(context.Background(), "")
	assert.ErrorIs(t, err, idempotency.ErrEmptyKey)
	assert.ErrorIs(t, store.Put(context.Background(), "", receipt, 0), idempotency.ErrEmptyKey)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := idempotency.NewMemoryStore(idempotency.WithClock(clock))

	rec, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Put(ctx, "r1", receipt, time.Hour))
	rec, err = store.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, receipt, *rec)

	t.Run("last write wins", func(t *testing.T) {
		other := receipt
		other.NotificationID = "7d1f3c1a-2b4e-4f9a-8c7d-1e2f3a4b5c6d"
		s := idempotency.NewMemoryStore()
		require.NoError(t, s.Put(ctx, "r2", receipt, 0))
		require.NoError(t, s.Put(ctx, "r2", other, 0))
		got, err := s.Get(ctx, "r2")
		require.NoError(t, err)
		assert.Equal(t, other.NotificationID, got.NotificationID)
	})

	t.Run("expired entries are dropped", func(t *testing.T) {
		cur := now
		s := idempotency.NewMemoryStore(idempotency.WithClock(func() time.Time { return cur }))
		require.NoError(t, s.Put(ctx, "r3", receipt, time.Minute))
		cur = cur.Add(time.Minute)
		got, err := s.Get(ctx, "r3")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 0, s.Len())
	})
}

func TestMemoryStore_Unavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := idempotency.NewMemoryStore()
	store.SetUnavailable(errors.New("down"))

	_, err := store.Get(ctx, "r1")
	assert.ErrorIs(t, err, idempotency.ErrUnavailable)
	assert.ErrorIs(t, store.Put(ctx, "r1", receipt, 0), idempotency.ErrUnavailable)

	store.SetUnavailable(nil)
	_, err = store.Get(ctx, "r1")
	assert.NoError(t, err)
}

var (
	_ idempotency.Store = (*idempotency.RedisStore)(nil)
	_ idempotency.Store = (*idempotency.MemoryStore)(nil)
)
