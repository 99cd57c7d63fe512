// Package email sends transactional email through Postmark, or writes it to
// disk during local development.
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//	    return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "jane@example.com",
//	    Subject:  "Welcome Jane!",
//	    BodyHTML: "<p>Hello</p>",
//	})
//
// Errors wrap ErrInvalidParams, ErrRejected (permanent provider refusal) or
// ErrFailedToSendEmail (transport failure).
package email
