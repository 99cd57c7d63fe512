package idempotency

import "errors"

var (
	ErrUnavailable  = errors.New("idempotency store unavailable")
	ErrEmptyKey     = errors.New("idempotency key is empty")
	ErrCorruptEntry = errors.New("idempotency entry is corrupt")
)
