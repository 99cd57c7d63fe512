package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// AMQPBroker talks to RabbitMQ. Publishes are persistent and wait for a
// publisher confirm; consumers use manual acknowledgement.
type AMQPBroker struct {
	conn     *amqp.Connection
	topology Topology
	cfg      Config
	log      *slog.Logger

	pubMu sync.Mutex
	pubCh *amqp.Channel

	getMu sync.Mutex
	getCh *amqp.Channel
}

type Option func(*AMQPBroker)

func WithLogger(l *slog.Logger) Option {
	return func(b *AMQPBroker) {
		if l != nil {
			b.log = l
		}
	}
}

// DialAMQP connects with retries and declares topology.
func DialAMQP(ctx context.Context, cfg Config, topology Topology, opts ...Option) (*AMQPBroker, error) {
	if err := topology.Validate(); err != nil {
		return nil, err
	}

	b := &AMQPBroker{topology: topology, cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	var lastErr error
	for attempt := range max(cfg.RetryAttempts, 1) {
		conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
			Heartbeat: cfg.Heartbeat,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(cfg.DialTimeout),
		})
		if err == nil {
			b.conn = conn
			break
		}
		lastErr = err
		b.log.WarnContext(ctx, "broker dial failed", slog.Int("attempt", attempt+1), logger.Error(err))

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrDial, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	if b.conn == nil {
		return nil, errors.Join(ErrDial, lastErr)
	}

	if err := b.declare(); err != nil {
		_ = b.conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *AMQPBroker) declare() error {
	ch, err := b.conn.Channel()
	if err != nil {
		return errors.Join(ErrDeclareTopology, err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(b.topology.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return errors.Join(ErrDeclareTopology, err)
	}
	for _, q := range b.topology.Queues {
		if _, err := ch.QueueDeclare(q.Name, true, false, false, false, nil); err != nil {
			return errors.Join(ErrDeclareTopology, fmt.Errorf("queue %s: %w", q.Name, err))
		}
		if err := ch.QueueBind(q.Name, q.RoutingKey, b.topology.Exchange, false, nil); err != nil {
			return errors.Join(ErrDeclareTopology, fmt.Errorf("bind %s: %w", q.Name, err))
		}
	}
	return nil
}

func (b *AMQPBroker) Publish(ctx context.Context, routingKey string, msg Message) error {
	if len(b.topology.QueuesFor(routingKey)) == 0 {
		return ErrUnroutable
	}
	if b.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.PublishTimeout)
		defer cancel()
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	contentType := msg.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	b.pubMu.Lock()
	ch, err := b.publishChannel()
	if err != nil {
		b.pubMu.Unlock()
		return errors.Join(ErrPublish, err)
	}
	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, b.topology.Exchange, routingKey, false, false, amqp.Publishing{
		Headers:      toTable(msg.Headers),
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.Timestamp,
		Body:         msg.Body,
	})
	b.pubMu.Unlock()
	if err != nil {
		return errors.Join(ErrPublish, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return errors.Join(ErrPublish, err)
	}
	if !acked {
		return ErrPublishNacked
	}
	return nil
}

// publishChannel reopens the confirm channel if the server closed it.
// Caller holds pubMu.
func (b *AMQPBroker) publishChannel() (*amqp.Channel, error) {
	if b.pubCh != nil && !b.pubCh.IsClosed() {
		return b.pubCh, nil
	}
	if b.conn.IsClosed() {
		return nil, ErrClosed
	}
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, err
	}
	b.pubCh = ch
	return ch, nil
}

func (b *AMQPBroker) Consume(ctx context.Context, queue string, prefetch int) (<-chan Delivery, error) {
	if !b.topology.HasQueue(queue) {
		return nil, ErrUnknownQueue
	}
	if b.conn.IsClosed() {
		return nil, ErrClosed
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, errors.Join(ErrConsume, err)
	}
	if err := ch.Qos(max(prefetch, 1), 0, false); err != nil {
		_ = ch.Close()
		return nil, errors.Join(ErrConsume, err)
	}

	tag := "notifyhub-" + uuid.NewString()
	msgs, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, errors.Join(ErrConsume, err)
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(tag, false)
		case <-stopped:
		}
	}()

	out := make(chan Delivery)
	var unsettled sync.WaitGroup
	go func() {
		defer func() {
			close(stopped)
			close(out)
			// acks must go out on the channel they arrived on
			unsettled.Wait()
			_ = ch.Close()
		}()

		for d := range msgs {
			if ctx.Err() != nil {
				_ = d.Nack(false, true)
				continue
			}
			unsettled.Add(1)
			acker := &amqpAcker{d: d, done: unsettled.Done}
			select {
			case out <- NewDelivery(fromAMQP(d), queue, d.Redelivered, acker):
			case <-ctx.Done():
				_ = acker.Nack(true)
			}
		}
	}()
	return out, nil
}

func (b *AMQPBroker) Get(ctx context.Context, queue string) (Delivery, bool, error) {
	if !b.topology.HasQueue(queue) {
		return Delivery{}, false, ErrUnknownQueue
	}
	if err := ctx.Err(); err != nil {
		return Delivery{}, false, err
	}

	b.getMu.Lock()
	defer b.getMu.Unlock()

	if b.getCh == nil || b.getCh.IsClosed() {
		if b.conn.IsClosed() {
			return Delivery{}, false, ErrClosed
		}
		ch, err := b.conn.Channel()
		if err != nil {
			return Delivery{}, false, errors.Join(ErrConsume, err)
		}
		b.getCh = ch
	}

	d, ok, err := b.getCh.Get(queue, false)
	if err != nil || !ok {
		return Delivery{}, false, err
	}
	return NewDelivery(fromAMQP(d), queue, d.Redelivered, &amqpAcker{d: d}), true, nil
}

func (b *AMQPBroker) Healthcheck(context.Context) error {
	if b.conn == nil || b.conn.IsClosed() {
		return ErrClosed
	}
	return nil
}

func (b *AMQPBroker) Close() error {
	b.pubMu.Lock()
	if b.pubCh != nil {
		_ = b.pubCh.Close()
	}
	b.pubMu.Unlock()

	b.getMu.Lock()
	if b.getCh != nil {
		_ = b.getCh.Close()
	}
	b.getMu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}

type amqpAcker struct {
	d       amqp.Delivery
	done    func()
	settled atomic.Bool
}

func (a *amqpAcker) Ack() error {
	if !a.settled.CompareAndSwap(false, true) {
		return ErrAlreadyAcked
	}
	defer a.finish()
	return a.d.Ack(false)
}

func (a *amqpAcker) Nack(requeue bool) error {
	if !a.settled.CompareAndSwap(false, true) {
		return ErrAlreadyAcked
	}
	defer a.finish()
	return a.d.Nack(false, requeue)
}

func (a *amqpAcker) finish() {
	if a.done != nil {
		a.done()
	}
}

func fromAMQP(d amqp.Delivery) Message {
	var headers map[string]string
	if len(d.Headers) > 0 {
		headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			if s, ok := v.(string); ok {
				headers[k] = s
			} else {
				headers[k] = fmt.Sprint(v)
			}
		}
	}
	return Message{
		ID:          d.MessageId,
		RoutingKey:  d.RoutingKey,
		ContentType: d.ContentType,
		Body:        d.Body,
		Headers:     headers,
		Timestamp:   d.Timestamp,
	}
}

func toTable(h map[string]string) amqp.Table {
	if len(h) == 0 {
		return nil
	}
	t := make(amqp.Table, len(h))
	for k, v := range h {
		t[k] = v
	}
	return t
}
