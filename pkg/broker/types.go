package broker

import (
	"context"
	"fmt"
	"time"
)

// Header keys stamped on dead-lettered messages.
const (
	HeaderFailureReason      = "x-failure-reason"
	HeaderOriginalRoutingKey = "x-original-routing-key"
	HeaderOriginalQueue      = "x-original-queue"
	HeaderFailedAt           = "x-failed-at"
)

type Message struct {
	ID          string
	RoutingKey  string
	ContentType string
	Body        []byte
	Headers     map[string]string
	Timestamp   time.Time
}

// Clone copies the message so header edits do not leak to the original.
func (m Message) Clone() Message {
	c := m
	c.Body = append([]byte(nil), m.Body...)
	if m.Headers != nil {
		c.Headers = make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			c.Headers[k] = v
		}
	}
	return c
}

// Acknowledger settles a delivery. Implementations must reject a second
// settlement with ErrAlreadyAcked.
type Acknowledger interface {
	Ack() error
	Nack(requeue bool) error
}

type Delivery struct {
	Message
	Queue       string
	Redelivered bool
	acker       Acknowledger
}

func NewDelivery(msg Message, queue string, redelivered bool, acker Acknowledger) Delivery {
	return Delivery{Message: msg, Queue: queue, Redelivered: redelivered, acker: acker}
}

func (d Delivery) Ack() error {
	if d.acker == nil {
		return ErrNoAcknowledger
	}
	return d.acker.Ack()
}

func (d Delivery) Nack(requeue bool) error {
	if d.acker == nil {
		return ErrNoAcknowledger
	}
	return d.acker.Nack(requeue)
}

type Publisher interface {
	// Publish returns only after the broker has taken responsibility for msg.
	Publish(ctx context.Context, routingKey string, msg Message) error
}

type Subscriber interface {
	// Consume streams deliveries from queue with at most prefetch unsettled
	// at a time. The channel closes when ctx is done or the subscription
	// is lost.
	Consume(ctx context.Context, queue string, prefetch int) (<-chan Delivery, error)
}

type Getter interface {
	// Get pulls a single message. ok is false when the queue is empty.
	Get(ctx context.Context, queue string) (d Delivery, ok bool, err error)
}

type Broker interface {
	Publisher
	Subscriber
	Getter
	Healthcheck(ctx context.Context) error
	Close() error
}

// QueueSpec is a durable queue bound to the exchange with RoutingKey.
type QueueSpec struct {
	Name       string
	RoutingKey string
}

// Topology is one direct exchange and its bound queues.
type Topology struct {
	Exchange string
	Queues   []QueueSpec
}

func (t Topology) Validate() error {
	if t.Exchange == "" {
		return fmt.Errorf("%w: empty exchange name", ErrInvalidTopology)
	}
	if len(t.Queues) == 0 {
		return fmt.Errorf("%w: no queues", ErrInvalidTopology)
	}
	seen := make(map[string]bool, len(t.Queues))
	for _, q := range t.Queues {
		if q.Name == "" || q.RoutingKey == "" {
			return fmt.Errorf("%w: queue %q needs a name and routing key", ErrInvalidTopology, q.Name)
		}
		if seen[q.Name] {
			return fmt.Errorf("%w: duplicate queue %q", ErrInvalidTopology, q.Name)
		}
		seen[q.Name] = true
	}
	return nil
}

// QueuesFor lists the queues bound to routingKey.
func (t Topology) QueuesFor(routingKey string) []string {
	var names []string
	for _, q := range t.Queues {
		if q.RoutingKey == routingKey {
			names = append(names, q.Name)
		}
	}
	return names
}

func (t Topology) HasQueue(name string) bool {
	for _, q := range t.Queues {
		if q.Name == name {
			return true
		}
	}
	return false
}
