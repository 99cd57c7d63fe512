package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/notifyhub/pkg/validator"
)

type postmarkClient struct {
	client *postmark.Client
	config Config
}

func NewPostmarkClient(cfg Config) (EmailSender, error) {
	err := validator.Apply(
		validator.RequiredString("PostmarkServerToken", cfg.PostmarkServerToken),
		validator.RequiredString("PostmarkAccountToken", cfg.PostmarkAccountToken),
		validator.ValidEmail("SenderEmail", cfg.SenderEmail),
		validator.When(cfg.ReplyTo != "", validator.ValidEmail("ReplyTo", cfg.ReplyTo)),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &postmarkClient{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

func MustNewPostmarkClient(cfg Config) EmailSender {
	client, err := NewPostmarkClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// SendEmail returns ErrRejected when Postmark answers with an API error code
// (bad recipient, inactive address) and ErrFailedToSendEmail on transport
// failures.
func (c *postmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:          c.config.SenderEmail,
		ReplyTo:       c.config.ReplyTo,
		To:            params.SendTo,
		Subject:       params.Subject,
		Tag:           params.Tag,
		HTMLBody:      params.BodyHTML,
		TextBody:      params.BodyText,
		Metadata:      params.Metadata,
		MessageStream: c.config.MessageStream,
		TrackOpens:    true,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrRejected, fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
