package directory

import (
	"context"

	"github.com/dmitrymomot/notifyhub/internal/notification"
)

type Preferences struct {
	Email bool `json:"email" yaml:"email"`
	Push  bool `json:"push" yaml:"push"`
}

type User struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Email       string      `json:"email" yaml:"email"`
	PushToken   string      `json:"push_token,omitempty" yaml:"push_token"`
	Preferences Preferences `json:"preferences" yaml:"preferences"`
}

// Enabled reports whether the user accepts notifications on ch.
func (u User) Enabled(ch notification.Channel) bool {
	switch ch {
	case notification.ChannelEmail:
		return u.Preferences.Email
	case notification.ChannelPush:
		return u.Preferences.Push
	}
	return false
}

// Address returns the email address or push token for ch, or "" if the
// user has none.
func (u User) Address(ch notification.Channel) string {
	switch ch {
	case notification.ChannelEmail:
		return u.Email
	case notification.ChannelPush:
		return u.PushToken
	}
	return ""
}

type Directory interface {
	// GetUser fails with ErrUserNotFound for unknown ids.
	GetUser(ctx context.Context, userID string) (User, error)
}
