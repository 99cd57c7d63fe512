package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrymomot/notifyhub/internal/notification"
)

// MemoryStore keeps entries in process. Expired entries are dropped on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
	err     error
}

type memEntry struct {
	rec       notification.Receipt
	expiresAt time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now for TTL checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUnavailable makes every call fail with ErrUnavailable joined with
// cause. Pass nil to recover.
func (s *MemoryStore) SetUnavailable(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = cause
}

func (s *MemoryStore) Get(ctx context.Context, requestID string) (*notification.Receipt, error) {
	if requestID == "" {
		return nil, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	e, ok := s.entries[requestID]
	failure := s.err
	s.mu.RUnlock()

	if failure != nil {
		return nil, unavailable(failure)
	}
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[requestID]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, requestID)
		}
		s.mu.Unlock()
		return nil, nil
	}

	rec := e.rec
	return &rec, nil
}

func (s *MemoryStore) Put(ctx context.Context, requestID string, rec notification.Receipt, ttl time.Duration) error {
	if requestID == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return unavailable(s.err)
	}
	s.entries[requestID] = memEntry{rec: rec, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func unavailable(cause error) error {
	return errors.Join(ErrUnavailable, cause)
}
