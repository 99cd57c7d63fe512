package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/pkg/statemachine"
)

type lifecycleEvent string

const (
	eventDeliver lifecycleEvent = "deliver"
	eventFail    lifecycleEvent = "fail"
)

// lifecycle is PENDING -> DELIVERED | FAILED; both targets are final.
var lifecycle = statemachine.MustTable(
	statemachine.Transition[notification.Status, lifecycleEvent]{
		From: notification.StatusPending, Event: eventDeliver, To: notification.StatusDelivered,
	},
	statemachine.Transition[notification.Status, lifecycleEvent]{
		From: notification.StatusPending, Event: eventFail, To: notification.StatusFailed,
	},
)

func checkTransition(ctx context.Context, from notification.Status, to notification.Status) error {
	var event lifecycleEvent
	switch to {
	case notification.StatusDelivered:
		event = eventDeliver
	case notification.StatusFailed:
		event = eventFail
	default:
		return fmt.Errorf("%w: target %q", ErrInvalidTransition, to)
	}

	if lifecycle.Terminal(from) {
		return fmt.Errorf("%w: %s", ErrAlreadyFinal, from)
	}
	if _, err := lifecycle.Next(ctx, from, event); err != nil {
		return errors.Join(ErrInvalidTransition, err)
	}
	return nil
}

func wrapInvalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, msg)
}
