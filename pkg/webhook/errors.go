package webhook

import "errors"

var (
	ErrMissingSecret     = errors.New("webhook signing secret is required")
	ErrEmptyPayload      = errors.New("webhook payload is empty")
	ErrMissingSignature  = errors.New("webhook signature headers are missing")
	ErrInvalidTimestamp  = errors.New("invalid webhook signature timestamp")
	ErrSignatureExpired  = errors.New("webhook signature is outside the accepted window")
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
)
