package worker

import "errors"

var (
	ErrInvalidEnvelope   = errors.New("invalid envelope")
	ErrChannelMismatch   = errors.New("envelope channel does not match worker")
	ErrUnknownRecord     = errors.New("no status record for notification")
	ErrNoAddress         = errors.New("user has no address for channel")
	ErrPushRejected      = errors.New("push gateway rejected notification")
	ErrPushUnavailable   = errors.New("push gateway unavailable")
	ErrMissingDependency = errors.New("worker dependency is nil")
)
