package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MemoryBroker is an in-process Broker for tests and local development.
// It honours the same topology, prefetch and ack semantics as AMQPBroker but
// keeps nothing across restarts.
type MemoryBroker struct {
	topology Topology
	mu       sync.RWMutex
	queues   map[string]*memQueue
	closed   atomic.Bool
	done     chan struct{}
}

type memItem struct {
	msg         Message
	redelivered bool
}

type memQueue struct {
	mu      sync.Mutex
	ready   []memItem
	unacked int
	wake    chan struct{} // closed and replaced on every push
}

func NewMemoryBroker(topology Topology) (*MemoryBroker, error) {
	if err := topology.Validate(); err != nil {
		return nil, err
	}
	b := &MemoryBroker{
		topology: topology,
		queues:   make(map[string]*memQueue, len(topology.Queues)),
		done:     make(chan struct{}),
	}
	for _, q := range topology.Queues {
		b.queues[q.Name] = &memQueue{wake: make(chan struct{})}
	}
	return b, nil
}

func (b *MemoryBroker) Publish(ctx context.Context, routingKey string, msg Message) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	names := b.topology.QueuesFor(routingKey)
	if len(names) == 0 {
		return ErrUnroutable
	}

	msg = msg.Clone()
	msg.RoutingKey = routingKey
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	for _, name := range names {
		b.queue(name).push(memItem{msg: msg.Clone()}, false)
	}
	return nil
}

func (b *MemoryBroker) Consume(ctx context.Context, queue string, prefetch int) (<-chan Delivery, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	q := b.queue(queue)
	if q == nil {
		return nil, ErrUnknownQueue
	}

	out := make(chan Delivery)
	slots := make(chan struct{}, max(prefetch, 1))

	go func() {
		defer close(out)
		for {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return
			case <-b.done:
				return
			}

			item, ok := q.wait(ctx, b.done)
			if !ok {
				<-slots
				return
			}

			acker := &memAcker{q: q, item: item, release: func() { <-slots }}
			select {
			case out <- NewDelivery(item.msg.Clone(), queue, item.redelivered, acker):
			case <-ctx.Done():
				_ = acker.Nack(true)
				return
			case <-b.done:
				_ = acker.Nack(true)
				return
			}
		}
	}()
	return out, nil
}

func (b *MemoryBroker) Get(ctx context.Context, queue string) (Delivery, bool, error) {
	if b.closed.Load() {
		return Delivery{}, false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Delivery{}, false, err
	}
	q := b.queue(queue)
	if q == nil {
		return Delivery{}, false, ErrUnknownQueue
	}

	item, ok := q.pop()
	if !ok {
		return Delivery{}, false, nil
	}
	return NewDelivery(item.msg.Clone(), queue, item.redelivered, &memAcker{q: q, item: item}), true, nil
}

// Depth reports ready plus unacknowledged messages on queue.
func (b *MemoryBroker) Depth(queue string) int {
	q := b.queue(queue)
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) + q.unacked
}

// Messages returns a snapshot of the ready messages on queue.
func (b *MemoryBroker) Messages(queue string) []Message {
	q := b.queue(queue)
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := make([]Message, 0, len(q.ready))
	for _, it := range q.ready {
		msgs = append(msgs, it.msg.Clone())
	}
	return msgs
}

func (b *MemoryBroker) Healthcheck(context.Context) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
	return nil
}

func (b *MemoryBroker) queue(name string) *memQueue {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.queues[name]
}

func (q *memQueue) push(it memItem, front bool) {
	q.mu.Lock()
	if front {
		q.ready = append([]memItem{it}, q.ready...)
	} else {
		q.ready = append(q.ready, it)
	}
	close(q.wake)
	q.wake = make(chan struct{})
	q.mu.Unlock()
}

func (q *memQueue) pop() (memItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return memItem{}, false
	}
	it := q.ready[0]
	q.ready = q.ready[1:]
	q.unacked++
	return it, true
}

// wait blocks until a message is available or ctx/done fires.
func (q *memQueue) wait(ctx context.Context, done <-chan struct{}) (memItem, bool) {
	for {
		q.mu.Lock()
		if len(q.ready) > 0 {
			it := q.ready[0]
			q.ready = q.ready[1:]
			q.unacked++
			q.mu.Unlock()
			return it, true
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return memItem{}, false
		case <-done:
			return memItem{}, false
		}
	}
}

type memAcker struct {
	q       *memQueue
	item    memItem
	release func()
	settled atomic.Bool
}

func (a *memAcker) Ack() error {
	if !a.settled.CompareAndSwap(false, true) {
		return ErrAlreadyAcked
	}
	a.finish()
	return nil
}

func (a *memAcker) Nack(requeue bool) error {
	if !a.settled.CompareAndSwap(false, true) {
		return ErrAlreadyAcked
	}
	if requeue {
		a.q.push(memItem{msg: a.item.msg, redelivered: true}, true)
	}
	a.finish()
	return nil
}

func (a *memAcker) finish() {
	a.q.mu.Lock()
	a.q.unacked--
	a.q.mu.Unlock()
	if a.release != nil {
		a.release()
	}
}
