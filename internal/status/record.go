package status

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrymomot/notifyhub/internal/notification"
)

const maxDetailLength = 2048

type Record struct {
	NotificationID string               `json:"notification_id"`
	RequestID      string               `json:"request_id"`
	Channel        notification.Channel `json:"channel"`
	Status         notification.Status  `json:"status"`
	ErrorDetail    string               `json:"error_detail,omitempty"`
	SkipReason     string               `json:"skip_reason,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Transition is a requested move out of PENDING.
type Transition struct {
	To          notification.Status
	ErrorDetail string
	SkipReason  string
}

func Delivered() Transition {
	return Transition{To: notification.StatusDelivered}
}

// Skipped is a successful outcome without a transport call.
func Skipped(reason string) Transition {
	return Transition{To: notification.StatusDelivered, SkipReason: reason}
}

func Failed(detail string) Transition {
	return Transition{To: notification.StatusFailed, ErrorDetail: detail}
}

// normalize keeps error_detail only on FAILED and skip_reason only on
// DELIVERED.
func (t Transition) normalize() Transition {
	switch t.To {
	case notification.StatusFailed:
		t.SkipReason = ""
		t.ErrorDetail = truncate(sanitize(t.ErrorDetail), maxDetailLength)
	case notification.StatusDelivered:
		t.ErrorDetail = ""
		t.SkipReason = truncate(sanitize(t.SkipReason), maxDetailLength)
	}
	return t
}

// Event is one entry of a record's status history.
type Event struct {
	NotificationID string              `json:"notification_id"`
	Status         notification.Status `json:"status"`
	Detail         string              `json:"detail,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

type Tracker interface {
	// Create stores a new PENDING record.
	Create(ctx context.Context, rec Record) error
	// Transition moves a PENDING record to a terminal status and returns
	// the stored result. It fails with ErrAlreadyFinal if the record is
	// already terminal.
	Transition(ctx context.Context, notificationID string, t Transition) (Record, error)
	Get(ctx context.Context, notificationID string) (Record, error)
	// Lookup returns the most recent record created for requestID.
	Lookup(ctx context.Context, requestID string) (Record, error)
}

// Sweeper is a Tracker that can list stale PENDING records.
type Sweeper interface {
	Tracker
	StalePending(ctx context.Context, createdBefore time.Time, limit int) ([]Record, error)
}

func validateNew(rec Record) (Record, error) {
	if rec.Status == "" {
		rec.Status = notification.StatusPending
	}
	switch {
	case rec.NotificationID == "":
		return rec, wrapInvalid("notification_id is required")
	case rec.RequestID == "":
		return rec, wrapInvalid("request_id is required")
	case rec.Status != notification.StatusPending:
		return rec, wrapInvalid("new records must be pending")
	}
	rec.ErrorDetail = ""
	rec.SkipReason = ""
	return rec, nil
}

// sanitize makes s storable in a TEXT column: valid UTF-8 without NUL.
func sanitize(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

// truncate cuts s to at most n bytes without splitting a character.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func eventDetail(t Transition) string {
	if t.ErrorDetail != "" {
		return t.ErrorDetail
	}
	return t.SkipReason
}
