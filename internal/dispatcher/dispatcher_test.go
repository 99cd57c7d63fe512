package dispatcher_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/dispatcher"
	"github.com/dmitrymomot/notifyhub/internal/idempotency"
	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
	"github.com/dmitrymomot/notifyhub/pkg/correlation"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, msg broker.Message) error {
	return m.Called(ctx, routingKey, msg).Error(0)
}

type fixture struct {
	idem    *idempotency.MemoryStore
	tracker *status.MemoryTracker
	broker  *broker.MemoryBroker
	disp    *dispatcher.Dispatcher
}

func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string {
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n.Add(1))
	}
}

func newFixture(t *testing.T, pub broker.Publisher) *fixture {
	t.Helper()

	b, err := broker.NewMemoryBroker(notification.Topology())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	f := &fixture{
		idem:    idempotency.NewMemoryStore(),
		tracker: status.NewMemoryTracker(),
		broker:  b,
	}
	if pub == nil {
		pub = b
	}
	f.disp = dispatcher.New(f.idem, f.tracker, pub, dispatcher.Config{},
		dispatcher.WithIDGenerator(sequentialIDs()),
		dispatcher.WithLogger(logger.Discard()),
	)
	return f
}

func emailRequest(requestID string) notification.Request {
	return notification.Request{
		RequestID:    requestID,
		UserID:       "u1",
		Channel:      notification.ChannelEmail,
		TemplateCode: "welcome",
		Variables:    map[string]any{"name": "Ann", "link": "https://x"},
	}
}

func TestSubmit_EnqueuesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.disp.Submit(ctx, emailRequest("r1"))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, notification.StatusPending, first.Receipt.Status)
	assert.Equal(t, "r1", first.Receipt.RequestID)
	assert.NotEqual(t, "r1", first.Receipt.NotificationID)

	second, err := f.disp.Submit(ctx, emailRequest("r1"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Receipt, second.Receipt)

	assert.Equal(t, 1, f.broker.Depth("email.queue"))
	assert.Equal(t, 0, f.broker.Depth("push.queue"))
	assert.Equal(t, 1, f.tracker.Len())

	msgs := f.broker.Messages("email.queue")
	require.Len(t, msgs, 1)
	env, err := notification.DecodeEnvelope(msgs[0].Body)
	require.NoError(t, err)
	assert.Equal(t, first.Receipt.NotificationID, env.NotificationID)
	assert.Equal(t, first.Receipt.NotificationID, msgs[0].ID)
	assert.Equal(t, "email", msgs[0].RoutingKey)
	assert.NoError(t, env.Validate())

	rec, err := f.tracker.Get(ctx, env.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, rec.Status)
}

func TestSubmit_RoutesByChannel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)

	upper := emailRequest("r-upper")
	upper.Channel = "EMAIL"
	_, err := f.disp.Submit(ctx, upper)
	require.NoError(t, err)

	push := emailRequest("r-push")
	push.Channel = notification.ChannelPush
	_, err = f.disp.Submit(ctx, push)
	require.NoError(t, err)

	assert.Equal(t, 1, f.broker.Depth("email.queue"))
	assert.Equal(t, 1, f.broker.Depth("push.queue"))
}

func TestSubmit_ValidationHasNoSideEffects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		mutate func(*notification.Request)
		field  string
	}{
		{"missing user id", func(r *notification.Request) { r.UserID = "" }, "user_id"},
		{"missing request id", func(r *notification.Request) { r.RequestID = "" }, "request_id"},
		{"unknown channel", func(r *notification.Request) { r.Channel = "sms" }, "notification_type"},
	}
	for _, tt := range tests {
		req := emailRequest("bad-" + tt.name)
		tt.mutate(&req)

		_, err := f.disp.Submit(ctx, req)
		var ve *notification.ValidationError
		require.ErrorAs(t, err, &ve, tt.name)
		assert.True(t, ve.Fields.Has(tt.field), tt.name)
	}

	assert.Equal(t, 0, f.broker.Depth("email.queue"))
	assert.Equal(t, 0, f.tracker.Len())
	assert.Equal(t, 0, f.idem.Len())
}

func TestSubmit_IdempotencyStoreDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	f.idem.SetUnavailable(errors.New("redis: connection refused"))

	_, err := f.disp.Submit(ctx, emailRequest("r1"))
	var de *notification.DispatchError
	require.ErrorAs(t, err, &de)
	assert.True(t, de.Retryable)
	assert.ErrorIs(t, err, idempotency.ErrUnavailable)

	assert.Equal(t, 0, f.broker.Depth("email.queue"), "deduplication must never be bypassed")
	assert.Equal(t, 0, f.tracker.Len())
}

func TestSubmit_StatusStoreDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, nil)
	f.tracker.SetUnavailable(errors.New("pg down"))

	_, err := f.disp.Submit(ctx, emailRequest("r1"))
	assert.True(t, notification.IsRetryable(err))
	assert.Equal(t, 0, f.broker.Depth("email.queue"))
	assert.Equal(t, 0, f.idem.Len())
}

func TestSubmit_PublishFailureIsRetryable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, "email", mock.Anything).Return(broker.ErrPublishNacked).Once()
	f := newFixture(t, pub)

	_, err := f.disp.Submit(ctx, emailRequest("r1"))
	require.Error(t, err)
	assert.True(t, notification.IsRetryable(err))
	assert.ErrorIs(t, err, broker.ErrPublishNacked)

	rec, err := f.tracker.Lookup(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, rec.Status, "orphaned PENDING is left for the reconciler")
	assert.Equal(t, 0, f.idem.Len(), "no receipt may be cached for an unpublished request")

	pub.On("Publish", mock.Anything, "email", mock.Anything).Return(nil).Once()
	res, err := f.disp.Submit(ctx, emailRequest("r1"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.NotEqual(t, rec.NotificationID, res.Receipt.NotificationID)
	pub.AssertExpectations(t)
}

func TestSubmit_IdempotencyPutFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pub := &mockPublisher{}
	f := newFixture(t, pub)
	pub.On("Publish", mock.Anything, "email", mock.Anything).Run(func(mock.Arguments) {
		f.idem.SetUnavailable(errors.New("redis gone"))
	}).Return(nil).Once()

	res, err := f.disp.Submit(ctx, emailRequest("r1"))
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, res.Receipt.Status)
	pub.AssertExpectations(t)
}

func TestSubmit_CancelledContextDoesNotPublish(t *testing.T) {
	t.Parallel()

	pub := &mockPublisher{}
	f := newFixture(t, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.disp.Submit(ctx, emailRequest("r1"))
	require.Error(t, err)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_PropagatesCorrelationID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := correlation.WithContext(context.Background(), "corr-123")

	_, err := f.disp.Submit(ctx, emailRequest("r1"))
	require.NoError(t, err)

	msgs := f.broker.Messages("email.queue")
	require.Len(t, msgs, 1)
	assert.Equal(t, "corr-123", msgs[0].Headers[correlation.Header])
	assert.Equal(t, "application/json", msgs[0].ContentType)
}

func TestSubmit_DistinctRequestsGetDistinctIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, err := broker.NewMemoryBroker(notification.Topology())
	require.NoError(t, err)
	d := dispatcher.New(idempotency.NewMemoryStore(), status.NewMemoryTracker(), b, dispatcher.Config{},
		dispatcher.WithLogger(logger.Discard()))

	var (
		mu  sync.Mutex
		ids = map[string]bool{}
		wg  sync.WaitGroup
	)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.Submit(ctx, emailRequest(fmt.Sprintf("r%d", i)))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[res.Receipt.NotificationID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 50)
	assert.Equal(t, 50, b.Depth("email.queue"))
}
