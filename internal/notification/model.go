package notification

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Channel is a delivery medium. The set is closed: adding one means adding
// a route, a queue and a worker deliverer.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Channels lists every declared channel in routing order.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelPush}
}

// ParseChannel accepts any letter case ("EMAIL", "Push").
func ParseChannel(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
	return ch, nil
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPush:
		return true
	}
	return false
}

func (c Channel) String() string { return string(c) }

// UnmarshalJSON normalises case but keeps unknown values so validation can
// report them as a field error rather than a decode error.
func (c *Channel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = Channel(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// Request is the client submission.
type Request struct {
	RequestID    string         `json:"request_id"`
	UserID       string         `json:"user_id"`
	Channel      Channel        `json:"notification_type"`
	TemplateCode string         `json:"template_code"`
	Variables    map[string]any `json:"variables,omitempty"`
	Priority     *int           `json:"priority,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Envelope is the queued form of a Request.
type Envelope struct {
	Request
	NotificationID string    `json:"notification_id"`
	EnqueuedAt     time.Time `json:"timestamp"`
}

func NewEnvelope(req Request, notificationID string, now time.Time) Envelope {
	return Envelope{Request: req, NotificationID: notificationID, EnqueuedAt: now.UTC()}
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope ignores unknown fields so producers can evolve the schema.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Receipt is returned to the client on submit and cached for replays.
type Receipt struct {
	NotificationID string `json:"notification_id"`
	Status         Status `json:"status"`
	RequestID      string `json:"request_id"`
}
