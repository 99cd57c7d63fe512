package templates

import "errors"

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrUnavailable      = errors.New("template store unavailable")
	ErrInvalidTemplate  = errors.New("invalid template")
	ErrInvalidFixture   = errors.New("invalid template fixture")
)
