package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/correlation"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Consumer pulls deliveries from one queue and settles each according to its
// handler's result:
//
//   - nil: ack
//   - Requeue(err): nack with requeue after the requeue delay
//   - any other error or a panic: copy to the dead-letter key, then ack
//     (nack with requeue if the copy cannot be published)
type Consumer struct {
	sub     Subscriber
	queue   string
	handler Handler
	opts    consumerOptions

	sem chan struct{}
	wg  sync.WaitGroup
	mu  sync.Mutex

	cancel context.CancelFunc
	errCh  chan error
	done   chan struct{}
}

func NewConsumer(sub Subscriber, queue string, handler Handler, opts ...ConsumerOption) (*Consumer, error) {
	if sub == nil {
		return nil, ErrSubscriberNil
	}
	if handler == nil {
		return nil, ErrHandlerNil
	}

	o := consumerOptions{
		prefetch:       1,
		handlerTimeout: time.Minute,
		requeueDelay:   time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Consumer{
		sub:     sub,
		queue:   queue,
		handler: handler,
		opts:    o,
		sem:     make(chan struct{}, o.prefetch),
	}, nil
}

// Start subscribes and processes deliveries in the background.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return ErrConsumerStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	deliveries, err := c.sub.Consume(runCtx, c.queue, c.opts.prefetch)
	if err != nil {
		cancel()
		return err
	}

	c.cancel = cancel
	c.errCh = make(chan error, 1)
	c.done = make(chan struct{})
	go c.run(runCtx, deliveries, c.done)

	c.opts.logger.InfoContext(ctx, "consumer started",
		logger.Queue(c.queue),
		slog.Int("prefetch", c.opts.prefetch))
	return nil
}

// Stop cancels the subscription and waits for in-flight handlers.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return ErrConsumerNotStarted
	}
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.opts.logger.Info("consumer stopping, waiting for in-flight messages", logger.Queue(c.queue))
	// no wg.Add may race with Wait, so the dispatch loop must be gone first
	<-done
	c.wg.Wait()
	c.opts.logger.Info("consumer stopped", logger.Queue(c.queue))
	return nil
}

// Run returns a function suitable for errgroup. It fails with
// ErrSubscriptionClosed if the broker drops the subscription before ctx is
// done.
func (c *Consumer) Run(ctx context.Context) func() error {
	return func() error {
		if err := c.Start(ctx); err != nil {
			return err
		}

		var runErr error
		select {
		case <-ctx.Done():
		case runErr = <-c.errCh:
		}

		if err := c.Stop(); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	}
}

func (c *Consumer) run(ctx context.Context, deliveries <-chan Delivery, done chan<- struct{}) {
	defer close(done)

	for d := range deliveries {
		// a subscription may still hand over a delivery after cancellation
		if ctx.Err() != nil {
			if err := d.Nack(true); err != nil {
				c.opts.logger.Error("failed to return message after stop", logger.Queue(c.queue), logger.Error(err))
			}
			continue
		}
		c.sem <- struct{}{}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer func() { <-c.sem }()
			c.process(ctx, d)
		}()
	}

	if ctx.Err() == nil {
		c.errCh <- fmt.Errorf("%w: %s", ErrSubscriptionClosed, c.queue)
	}
}

func (c *Consumer) process(runCtx context.Context, d Delivery) {
	start := time.Now()

	// handlers outlive shutdown so in-flight messages settle cleanly
	ctx := context.WithoutCancel(runCtx)
	if id := d.Headers[correlation.Header]; correlation.IsValid(id) {
		ctx = correlation.WithContext(ctx, id)
	}
	hctx, cancel := context.WithTimeout(ctx, c.opts.handlerTimeout)
	defer cancel()

	err := c.handle(hctx, d.Message)
	log := c.opts.logger.With(
		logger.Queue(c.queue),
		slog.String("message_id", d.ID),
		slog.Bool("redelivered", d.Redelivered),
		slog.Duration("duration", time.Since(start)),
	)

	switch {
	case err == nil:
		if ackErr := d.Ack(); ackErr != nil {
			log.ErrorContext(ctx, "failed to ack message", logger.Error(ackErr))
		}

	case IsRequeue(err):
		log.WarnContext(ctx, "message requeued", logger.Error(err))
		if c.opts.requeueDelay > 0 {
			select {
			case <-time.After(c.opts.requeueDelay):
			case <-runCtx.Done():
			}
		}
		if nackErr := d.Nack(true); nackErr != nil {
			log.ErrorContext(ctx, "failed to requeue message", logger.Error(nackErr))
		}

	default:
		c.deadLetter(ctx, log, d, err)
	}
}

func (c *Consumer) handle(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return c.handler.Handle(ctx, msg)
}

func (c *Consumer) deadLetter(ctx context.Context, log *slog.Logger, d Delivery, cause error) {
	if c.opts.deadLetter == nil {
		log.ErrorContext(ctx, "message failed, no dead-letter route, dropping", logger.Error(cause))
		if err := d.Nack(false); err != nil {
			log.ErrorContext(ctx, "failed to reject message", logger.Error(err))
		}
		return
	}

	msg := d.Message.Clone()
	if msg.Headers == nil {
		msg.Headers = make(map[string]string, 4)
	}
	msg.Headers[HeaderFailureReason] = cause.Error()
	msg.Headers[HeaderOriginalRoutingKey] = d.RoutingKey
	msg.Headers[HeaderOriginalQueue] = c.queue
	msg.Headers[HeaderFailedAt] = time.Now().UTC().Format(time.RFC3339)

	if err := c.opts.deadLetter.Publish(ctx, c.opts.deadLetterKey, msg); err != nil {
		log.ErrorContext(ctx, "dead-letter publish failed, requeueing", logger.Error(errors.Join(cause, err)))
		if nackErr := d.Nack(true); nackErr != nil {
			log.ErrorContext(ctx, "failed to requeue message", logger.Error(nackErr))
		}
		return
	}

	log.WarnContext(ctx, "message dead-lettered", logger.Error(cause))
	if err := d.Ack(); err != nil {
		log.ErrorContext(ctx, "failed to ack dead-lettered message", logger.Error(err))
	}
}
