package worker

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// LogDeliverer only logs messages. It stands in for a transport in local
// development.
type LogDeliverer struct {
	channel notification.Channel
	log     *slog.Logger
}

func NewLogDeliverer(ch notification.Channel, log *slog.Logger) *LogDeliverer {
	if log == nil {
		log = slog.Default()
	}
	return &LogDeliverer{channel: ch, log: log}
}

func (d *LogDeliverer) Channel() notification.Channel { return d.channel }

func (d *LogDeliverer) Deliver(ctx context.Context, msg Message) error {
	d.log.InfoContext(ctx, "notification delivered to log",
		logger.Channel(d.channel.String()),
		logger.NotificationID(msg.NotificationID),
		slog.String("recipient", msg.Recipient),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
