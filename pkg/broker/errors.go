package broker

import "errors"

var (
	ErrClosed             = errors.New("broker: connection closed")
	ErrDial               = errors.New("broker: failed to connect")
	ErrDeclareTopology    = errors.New("broker: failed to declare topology")
	ErrInvalidTopology    = errors.New("broker: invalid topology")
	ErrUnroutable         = errors.New("broker: no queue bound to routing key")
	ErrUnknownQueue       = errors.New("broker: unknown queue")
	ErrPublish            = errors.New("broker: publish failed")
	ErrPublishNacked      = errors.New("broker: publish not confirmed")
	ErrConsume            = errors.New("broker: consume failed")
	ErrSubscriptionClosed = errors.New("broker: subscription closed unexpectedly")
	ErrAlreadyAcked       = errors.New("broker: delivery already acknowledged")
	ErrNoAcknowledger     = errors.New("broker: delivery has no acknowledger")
	ErrHandlerNil         = errors.New("broker: handler cannot be nil")
	ErrSubscriberNil      = errors.New("broker: subscriber cannot be nil")
	ErrConsumerStarted    = errors.New("broker: consumer already started")
	ErrConsumerNotStarted = errors.New("broker: consumer not started")
)
