package worker

import (
	"context"

	"github.com/dmitrymomot/notifyhub/internal/notification"
)

// Message is a rendered notification ready for a transport.
type Message struct {
	NotificationID string
	RequestID      string
	TemplateCode   string
	Recipient      string
	Subject        string
	Body           string
	Priority       *int
	Metadata       map[string]any
}

// Deliverer sends rendered messages over one channel. Deliver must be
// bounded by ctx.
type Deliverer interface {
	Channel() notification.Channel
	Deliver(ctx context.Context, msg Message) error
}
