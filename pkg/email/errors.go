package email

import "errors"

var (
	ErrFailedToSendEmail = errors.New("email: failed to send")
	ErrRejected          = errors.New("email: rejected by provider")
	ErrInvalidConfig     = errors.New("email: invalid config")
	ErrInvalidParams     = errors.New("email: invalid params")
	ErrUnknownProvider   = errors.New("email: unknown provider")
)
