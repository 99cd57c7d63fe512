package email

import (
	"context"
	"errors"

	"github.com/dmitrymomot/notifyhub/pkg/validator"
)

type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

type SendEmailParams struct {
	SendTo   string            `json:"send_to"`
	Subject  string            `json:"subject"`
	BodyHTML string            `json:"body_html"`
	BodyText string            `json:"body_text,omitempty"`
	Tag      string            `json:"tag,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"` // forwarded to the provider for bounce correlation
}

func (p SendEmailParams) Validate() error {
	if err := validator.Apply(
		validator.RequiredString("SendTo", p.SendTo),
		validator.When(p.SendTo != "", validator.ValidEmail("SendTo", p.SendTo)),
		validator.RequiredString("Subject", p.Subject),
		validator.RequiredString("BodyHTML", p.BodyHTML),
	); err != nil {
		return errors.Join(ErrInvalidParams, err)
	}
	return nil
}
