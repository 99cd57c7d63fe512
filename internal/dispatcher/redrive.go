package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
	"github.com/dmitrymomot/notifyhub/pkg/correlation"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// HeaderRedriveOf carries the notification_id a redriven envelope replaces.
const HeaderRedriveOf = "x-redrive-of"

type RedriveResult struct {
	// Resubmitted envelopes were enqueued again under a new notification_id.
	Resubmitted int
	// Skipped envelopes were invalid and moved to the back of the failed
	// queue.
	Skipped int
}

var errWrapped = errors.New("failed queue wrapped around")

// Redrive takes up to limit envelopes from the failed queue (all of them
// when limit <= 0) and enqueues each as a new notification. The request's
// idempotency entry is pointed at the new notification. It stops at the
// first envelope it has already seen in this run.
func (d *Dispatcher) Redrive(ctx context.Context, g broker.Getter, limit int) (RedriveResult, error) {
	var (
		res  RedriveResult
		seen = make(map[string]bool)
	)

	_, err := broker.Drain(ctx, g, notification.FailedQueue, limit, func(ctx context.Context, dl broker.Delivery) error {
		if dl.ID != "" {
			if seen[dl.ID] {
				return errWrapped
			}
			seen[dl.ID] = true
		}
		if cid := dl.Headers[correlation.Header]; correlation.IsValid(cid) {
			ctx = correlation.WithContext(ctx, cid)
		}

		env, err := notification.DecodeEnvelope(dl.Body)
		if err == nil {
			err = env.Validate()
		}
		if err != nil {
			d.log.WarnContext(ctx, "skipping invalid dead-lettered envelope",
				slog.String("message_id", dl.ID), logger.Error(err))
			if err := d.call(ctx, func(ctx context.Context) error {
				return d.pub.Publish(ctx, notification.FailedRoutingKey, dl.Message.Clone())
			}); err != nil {
				return fmt.Errorf("requeue invalid envelope: %w", err)
			}
			res.Skipped++
			return nil
		}

		receipt, err := d.enqueue(ctx, env.Request, map[string]string{HeaderRedriveOf: env.NotificationID})
		if err != nil {
			return err
		}
		seen[receipt.NotificationID] = true
		res.Resubmitted++

		// replays of the request must return the id that is now in flight
		if err := d.call(ctx, func(ctx context.Context) error {
			return d.idem.Put(ctx, env.RequestID, receipt, d.cfg.IdempotencyTTL)
		}); err != nil {
			d.log.WarnContext(ctx, "failed to refresh idempotency entry",
				logger.RequestID(env.RequestID),
				logger.NotificationID(receipt.NotificationID),
				logger.Error(err))
		}
		d.log.InfoContext(ctx, "dead-lettered notification resubmitted",
			logger.RequestID(env.RequestID),
			logger.NotificationID(receipt.NotificationID),
			slog.String("previous_notification_id", env.NotificationID),
		)
		return nil
	})
	if errors.Is(err, errWrapped) {
		err = nil
	}
	return res, err
}
