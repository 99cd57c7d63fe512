package notification

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifyhub/pkg/validator"
)

var (
	ErrUnknownChannel = errors.New("unknown notification channel")

	// ErrPreferenceSkip marks a user opt-out. It ends delivery successfully
	// and must never be reported as a failure.
	ErrPreferenceSkip = errors.New("channel disabled by user preference")
)

// ValidationError rejects a request or envelope before any side effect.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return "invalid notification: " + e.Fields.Error()
}

func (e *ValidationError) Unwrap() error { return e.Fields }

// DispatchError is a submit-time infrastructure failure. Retryable ones are
// safe to resend with the same request_id.
type DispatchError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Op, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// RenderError is a template or variable mismatch. Terminal.
type RenderError struct {
	TemplateCode string
	Err          error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render template %q: %v", e.TemplateCode, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// DeliveryError is a transport refusal or timeout for one attempt. Terminal.
type DeliveryError struct {
	Channel Channel
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsRetryable(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Retryable
}
