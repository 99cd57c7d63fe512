package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/broker"
)

func testTopology() broker.Topology {
	return broker.Topology{
		Exchange: "test.direct",
		Queues: []broker.QueueSpec{
			{Name: "a.queue", RoutingKey: "a"},
			{Name: "b.queue", RoutingKey: "b"},
			{Name: "dead.queue", RoutingKey: "dead"},
		},
	}
}

func newMemoryBroker(t *testing.T) *broker.MemoryBroker {
	t.Helper()
	b, err := broker.NewMemoryBroker(testTopology())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func receive(t *testing.T, ch <-chan broker.Delivery) broker.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "delivery channel closed")
		return d
	case <-time.After(time.Second):
		require.FailNow(t, "no delivery")
	}
	return broker.Delivery{}
}

func TestTopology_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, testTopology().Validate())
	assert.ErrorIs(t, broker.Topology{}.Validate(), broker.ErrInvalidTopology)
	assert.ErrorIs(t, broker.Topology{Exchange: "x"}.Validate(), broker.ErrInvalidTopology)
	assert.ErrorIs(t, broker.Topology{Exchange: "x", Queues: []broker.QueueSpec{{Name: "q"}}}.Validate(), broker.ErrInvalidTopology)
	assert.ErrorIs(t, broker.Topology{Exchange: "x", Queues: []broker.QueueSpec{
		{Name: "q", RoutingKey: "a"}, {Name: "q", RoutingKey: "b"},
	}}.Validate(), broker.ErrInvalidTopology)

	assert.Equal(t, []string{"b.queue"}, testTopology().QueuesFor("b"))
	assert.Empty(t, testTopology().QueuesFor("zzz"))
}

func TestMemoryBroker_PublishRoutes(t *testing.T) {
	t.Parallel()
	b := newMemoryBroker(t)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "a", broker.Message{Body: []byte(`{"n":1}`)}))
	assert.Equal(t, 1, b.Depth("a.queue"))
	assert.Equal(t, 0, b.Depth("b.queue"))

	msgs := b.Messages("a.queue")
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].RoutingKey)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].Timestamp.IsZero())

	assert.ErrorIs(t, b.Publish(ctx, "nope", broker.Message{}), broker.ErrUnroutable)
}

func TestMemoryBroker_AckAndRequeue(t *testing.T) {
	t.Parallel()
	b := newMemoryBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, b.Publish(ctx, "a", broker.Message{ID: "m1"}))
	ch, err := b.Consume(ctx, "a.queue", 1)
	require.NoError(t, err)

	d := receive(t, ch)
	assert.Equal(t, "m1", d.ID)
	assert.False(t, d.Redelivered)
	require.NoError(t, d.Nack(true))
	assert.ErrorIs(t, d.Ack(), broker.ErrAlreadyAcked)

	d = receive(t, ch)
	assert.Equal(t, "m1", d.ID)
	assert.True(t, d.Redelivered)
	require.NoError(t, d.Ack())
	assert.Equal(t, 0, b.Depth("a.queue"))
}

func TestMemoryBroker_PrefetchBound(t *testing.T) {
	t.Parallel()
	b := newMemoryBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"1", "2"} {
		require.NoError(t, b.Publish(ctx, "a", broker.Message{ID: id}))
	}
	ch, err := b.Consume(ctx, "a.queue", 1)
	require.NoError(t, err)

	first := receive(t, ch)
	select {
	case <-ch:
		require.Fail(t, "second delivery before first was settled")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Ack())
	second := receive(t, ch)
	assert.Equal(t, "2", second.ID)
	require.NoError(t, second.Ack())
}

func TestMemoryBroker_Get(t *testing.T) {
	t.Parallel()
	b := newMemoryBroker(t)
	ctx := context.Background()

	_, ok, err := b.Get(ctx, "a.queue")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Publish(ctx, "a", broker.Message{ID: "x"}))
	d, ok, err := b.Get(ctx, "a.queue")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", d.ID)
	assert.Equal(t, 1, b.Depth("a.queue"), "unacked still counted")
	require.NoError(t, d.Ack())
	assert.Equal(t, 0, b.Depth("a.queue"))

	_, _, err = b.Get(ctx, "missing")
	assert.ErrorIs(t, err, broker.ErrUnknownQueue)
}

func TestMemoryBroker_Close(t *testing.T) {
	t.Parallel()
	b := newMemoryBroker(t)
	ctx := context.Background()

	ch, err := b.Consume(ctx, "a.queue", 1)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		require.Fail(t, "consume channel not closed")
	}
	assert.ErrorIs(t, b.Publish(ctx, "a", broker.Message{}), broker.ErrClosed)
	assert.ErrorIs(t, b.Healthcheck(ctx), broker.ErrClosed)
}

func TestMessage_Clone(t *testing.T) {
	t.Parallel()

	m := broker.Message{Body: []byte("a"), Headers: map[string]string{"k": "v"}}
	c := m.Clone()
	c.Headers["k"] = "changed"
	c.Body[0] = 'b'

	assert.Equal(t, "v", m.Headers["k"])
	assert.Equal(t, "a", string(m.Body))
}
