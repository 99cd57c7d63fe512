package directory

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUnavailable     = errors.New("user directory unavailable")
	ErrInvalidResponse = errors.New("invalid user directory response")
	ErrInvalidFixture  = errors.New("invalid user fixture")
)
