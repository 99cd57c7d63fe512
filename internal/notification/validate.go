package notification

import (
	"github.com/dmitrymomot/notifyhub/pkg/validator"
)

const (
	maxIDLength       = 128
	maxTemplateLength = 64
	maxVariables      = 64
	minPriority       = 0
	maxPriority       = 10
)

func channelNames() []string {
	names := make([]string, 0, len(Channels()))
	for _, ch := range Channels() {
		names = append(names, ch.String())
	}
	return names
}

func requestRules(r Request) []validator.Rule {
	return []validator.Rule{
		validator.RequiredString("request_id", r.RequestID),
		validator.MaxLenString("request_id", r.RequestID, maxIDLength),
		validator.NoControlChars("request_id", r.RequestID),
		validator.RequiredString("user_id", r.UserID),
		validator.MaxLenString("user_id", r.UserID, maxIDLength),
		validator.RequiredString("notification_type", r.Channel.String()),
		validator.When(r.Channel != "", validator.InListCaseInsensitive("notification_type", r.Channel.String(), channelNames())),
		validator.RequiredString("template_code", r.TemplateCode),
		validator.MaxLenString("template_code", r.TemplateCode, maxTemplateLength),
		validator.MaxLenMap("variables", r.Variables, maxVariables),
		validator.When(r.Priority != nil, priorityRule(r.Priority)),
	}
}

func priorityRule(p *int) validator.Rule {
	return validator.Rule{
		Check: func() bool { return *p >= minPriority && *p <= maxPriority },
		Error: validator.ValidationError{Field: "priority", Message: "must be between 0 and 10"},
	}
}

// Validate checks a client request. It returns *ValidationError.
func (r Request) Validate() error {
	return wrap(validator.Apply(requestRules(r)...))
}

// Validate checks a dequeued envelope. It returns *ValidationError.
func (e Envelope) Validate() error {
	rules := append(requestRules(e.Request),
		validator.ValidUUID("notification_id", e.NotificationID),
		validator.RequiredTime("timestamp", e.EnqueuedAt),
	)
	return wrap(validator.Apply(rules...))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Fields: validator.ExtractValidationErrors(err)}
}
