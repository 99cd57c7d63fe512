package status

import "errors"

var (
	ErrNotFound          = errors.New("status record not found")
	ErrAlreadyExists     = errors.New("status record already exists")
	ErrAlreadyFinal      = errors.New("status record is already final")
	ErrInvalidRecord     = errors.New("invalid status record")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnavailable       = errors.New("status store unavailable")
)
