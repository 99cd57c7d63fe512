package broker

import (
	"context"
	"errors"
)

// Drain pulls up to limit messages from queue and passes each to fn.
// A nil result acks the message. An error nacks it back onto the queue
// and stops the drain. Drain returns the number of messages acked.
func Drain(ctx context.Context, g Getter, queue string, limit int, fn func(context.Context, Delivery) error) (int, error) {
	done := 0
	for limit <= 0 || done < limit {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		d, ok, err := g.Get(ctx, queue)
		if err != nil {
			return done, err
		}
		if !ok {
			return done, nil
		}

		if err := fn(ctx, d); err != nil {
			return done, errors.Join(err, d.Nack(true))
		}
		if err := d.Ack(); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}
