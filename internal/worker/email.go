package worker

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/pkg/email"
)

type EmailDeliverer struct {
	sender email.EmailSender
}

func NewEmailDeliverer(sender email.EmailSender) *EmailDeliverer {
	return &EmailDeliverer{sender: sender}
}

func (d *EmailDeliverer) Channel() notification.Channel { return notification.ChannelEmail }

func (d *EmailDeliverer) Deliver(ctx context.Context, msg Message) error {
	meta := map[string]string{
		"notification_id": msg.NotificationID,
		"request_id":      msg.RequestID,
	}
	for k, v := range msg.Metadata {
		if _, taken := meta[k]; !taken {
			meta[k] = fmt.Sprint(v)
		}
	}
	return d.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   msg.Recipient,
		Subject:  msg.Subject,
		BodyHTML: msg.Body,
		Tag:      msg.TemplateCode,
		Metadata: meta,
	})
}
