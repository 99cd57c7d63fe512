package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// NewJSONHandler decodes the message body into T before calling fn.
// A body that does not decode is a permanent failure.
func NewJSONHandler[T any](fn func(ctx context.Context, payload T) error) Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Body, &payload); err != nil {
			return fmt.Errorf("decode %T: %w", payload, err)
		}
		return fn(ctx, payload)
	})
}

type requeueError struct {
	err error
}

func (e *requeueError) Error() string { return "requeue: " + e.err.Error() }
func (e *requeueError) Unwrap() error { return e.err }

// Requeue marks err as transient: the consumer puts the message back on its
// queue instead of dead-lettering it.
func Requeue(err error) error {
	if err == nil {
		return nil
	}
	return &requeueError{err: err}
}

func IsRequeue(err error) bool {
	var re *requeueError
	return errors.As(err, &re)
}
