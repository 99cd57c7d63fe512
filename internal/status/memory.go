package status

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryTracker is an in-process Tracker for tests and local development.
type MemoryTracker struct {
	mu        sync.RWMutex
	records   map[string]Record
	byRequest map[string][]string
	history   map[string][]Event
	now       func() time.Time
	err       error
}

type MemoryOption func(*MemoryTracker)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryTracker) {
		m.now = now
	}
}

func NewMemoryTracker(opts ...MemoryOption) *MemoryTracker {
	m := &MemoryTracker{
		records:   make(map[string]Record),
		byRequest: make(map[string][]string),
		history:   make(map[string][]Event),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetUnavailable makes every call fail with ErrUnavailable joined with
// cause. Pass nil to recover.
func (m *MemoryTracker) SetUnavailable(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = cause
}

func (m *MemoryTracker) Create(ctx context.Context, rec Record) error {
	rec, err := validateNew(rec)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return errors.Join(ErrUnavailable, m.err)
	}
	if _, ok := m.records[rec.NotificationID]; ok {
		return ErrAlreadyExists
	}

	now := m.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	m.records[rec.NotificationID] = rec
	m.byRequest[rec.RequestID] = append(m.byRequest[rec.RequestID], rec.NotificationID)
	m.history[rec.NotificationID] = append(m.history[rec.NotificationID], Event{
		NotificationID: rec.NotificationID,
		Status:         rec.Status,
		CreatedAt:      now,
	})
	return nil
}

func (m *MemoryTracker) Transition(ctx context.Context, notificationID string, t Transition) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	t = t.normalize()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Record{}, errors.Join(ErrUnavailable, m.err)
	}

	rec, ok := m.records[notificationID]
	if !ok {
		return Record{}, ErrNotFound
	}
	if err := checkTransition(ctx, rec.Status, t.To); err != nil {
		return rec, err
	}

	now := m.now().UTC()
	rec.Status = t.To
	rec.ErrorDetail = t.ErrorDetail
	rec.SkipReason = t.SkipReason
	rec.UpdatedAt = now
	m.records[notificationID] = rec
	m.history[notificationID] = append(m.history[notificationID], Event{
		NotificationID: notificationID,
		Status:         t.To,
		Detail:         eventDetail(t),
		CreatedAt:      now,
	})
	return rec, nil
}

func (m *MemoryTracker) Get(ctx context.Context, notificationID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return Record{}, errors.Join(ErrUnavailable, m.err)
	}
	rec, ok := m.records[notificationID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryTracker) Lookup(ctx context.Context, requestID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return Record{}, errors.Join(ErrUnavailable, m.err)
	}
	ids := m.byRequest[requestID]
	if len(ids) == 0 {
		return Record{}, ErrNotFound
	}
	return m.records[ids[len(ids)-1]], nil
}

// History returns the status events of a record, oldest first.
func (m *MemoryTracker) History(ctx context.Context, notificationID string) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	events, ok := m.history[notificationID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Event(nil), events...), nil
}

func (m *MemoryTracker) StalePending(ctx context.Context, createdBefore time.Time, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, errors.Join(ErrUnavailable, m.err)
	}

	var stale []Record
	for _, rec := range m.records {
		if !rec.Status.Terminal() && rec.CreatedAt.Before(createdBefore) {
			stale = append(stale, rec)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// Len returns the number of stored records.
func (m *MemoryTracker) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
