package broker

import (
	"log/slog"
	"time"
)

type ConsumerOption func(*consumerOptions)

type consumerOptions struct {
	prefetch       int
	handlerTimeout time.Duration
	requeueDelay   time.Duration
	deadLetter     Publisher
	deadLetterKey  string
	logger         *slog.Logger
}

// WithPrefetch bounds in-flight messages; it is also the handler concurrency.
func WithPrefetch(n int) ConsumerOption {
	return func(o *consumerOptions) {
		if n > 0 {
			o.prefetch = n
		}
	}
}

// WithHandlerTimeout caps a single Handle call.
func WithHandlerTimeout(d time.Duration) ConsumerOption {
	return func(o *consumerOptions) {
		if d > 0 {
			o.handlerTimeout = d
		}
	}
}

// WithRequeueDelay pauses before a Requeue-marked message is put back, so a
// down dependency is not hammered in a tight loop.
func WithRequeueDelay(d time.Duration) ConsumerOption {
	return func(o *consumerOptions) {
		if d >= 0 {
			o.requeueDelay = d
		}
	}
}

// WithDeadLetter publishes permanently failed messages to routingKey via pub.
// Without it such messages are dropped.
func WithDeadLetter(pub Publisher, routingKey string) ConsumerOption {
	return func(o *consumerOptions) {
		o.deadLetter = pub
		o.deadLetterKey = routingKey
	}
}

func WithConsumerLogger(l *slog.Logger) ConsumerOption {
	return func(o *consumerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
