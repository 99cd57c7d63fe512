package notification_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/notification"
)

func validRequest() notification.Request {
	return notification.Request{
		RequestID:    "r1",
		UserID:       "u1",
		Channel:      notification.ChannelEmail,
		TemplateCode: "welcome",
		Variables:    map[string]any{"name": "Ann", "link": "https://x"},
	}
}

func TestRoute_TotalOverDeclaredChannels(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, ch := range notification.Channels() {
		q, err := notification.Route(ch)
		require.NoError(t, err, ch)
		assert.Equal(t, ch.String(), q.RoutingKey)
		assert.NotEmpty(t, q.Name)
		assert.False(t, seen[q.Name], "queues must be distinct")
		seen[q.Name] = true
	}
}

func TestRoute_RejectsUndeclared(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "sms", "EMAIL", "failed", "email "} {
		_, err := notification.Route(notification.Channel(raw))
		assert.ErrorIs(t, err, notification.ErrUnknownChannel, raw)
	}
}

func TestTopology(t *testing.T) {
	t.Parallel()

	topo := notification.Topology()
	require.NoError(t, topo.Validate())
	assert.Equal(t, "notifications.direct", topo.Exchange)
	assert.Equal(t, []string{"email.queue"}, topo.QueuesFor("email"))
	assert.Equal(t, []string{"push.queue"}, topo.QueuesFor("push"))
	assert.Equal(t, []string{"failed.queue"}, topo.QueuesFor(notification.FailedRoutingKey))
}

func TestParseChannel(t *testing.T) {
	t.Parallel()

	ch, err := notification.ParseChannel("EMAIL")
	require.NoError(t, err)
	assert.Equal(t, notification.ChannelEmail, ch)

	ch, err = notification.ParseChannel(" Push ")
	require.NoError(t, err)
	assert.Equal(t, notification.ChannelPush, ch)

	_, err = notification.ParseChannel("sms")
	assert.ErrorIs(t, err, notification.ErrUnknownChannel)
}

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	prio := 11
	tests := []struct {
		name   string
		mutate func(*notification.Request)
		fields []string
	}{
		{"valid", func(*notification.Request) {}, nil},
		{"missing user id", func(r *notification.Request) { r.UserID = "" }, []string{"user_id"}},
		{"missing request id", func(r *notification.Request) { r.RequestID = "  " }, []string{"request_id"}},
		{"missing both ids", func(r *notification.Request) { r.RequestID, r.UserID = "", "" }, []string{"request_id", "user_id"}},
		{"unknown channel", func(r *notification.Request) { r.Channel = "sms" }, []string{"notification_type"}},
		{"missing channel", func(r *notification.Request) { r.Channel = "" }, []string{"notification_type"}},
		{"missing template", func(r *notification.Request) { r.TemplateCode = "" }, []string{"template_code"}},
		{"priority out of range", func(r *notification.Request) { r.Priority = &prio }, []string{"priority"}},
		{"control chars in request id", func(r *notification.Request) { r.RequestID = "r\n1" }, []string{"request_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := validRequest()
			tt.mutate(&req)

			err := req.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			var ve *notification.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.fields, ve.Fields.Fields())
			assert.True(t, notification.IsValidationError(err))
		})
	}
}

func TestRequest_DecodesChannelCaseInsensitively(t *testing.T) {
	t.Parallel()

	var req notification.Request
	require.NoError(t, json.Unmarshal([]byte(`{
		"request_id": "r1", "user_id": "u1", "notification_type": "EMAIL",
		"template_code": "welcome", "variables": {"name": "Ann"}
	}`), &req))

	assert.Equal(t, notification.ChannelEmail, req.Channel)
	assert.NoError(t, req.Validate())
}

func TestEnvelope_WireShape(t *testing.T) {
	t.Parallel()

	prio := 3
	req := validRequest()
	req.Priority = &prio
	req.Metadata = map[string]any{"campaign": "spring"}
	env := notification.NewEnvelope(req, "0b0e7d1e-5c4f-4a36-9b1c-6a5f0e1b2c3d", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	raw, err := env.Marshal()
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "email", wire["notification_type"])
	assert.Equal(t, "r1", wire["request_id"])
	assert.Equal(t, "u1", wire["user_id"])
	assert.Equal(t, "welcome", wire["template_code"])
	assert.Equal(t, "0b0e7d1e-5c4f-4a36-9b1c-6a5f0e1b2c3d", wire["notification_id"])
	assert.Equal(t, "2025-03-01T12:00:00Z", wire["timestamp"])
	assert.Equal(t, float64(3), wire["priority"])
	assert.Equal(t, map[string]any{"campaign": "spring"}, wire["metadata"])
}

func TestDecodeEnvelope_IgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	env, err := notification.DecodeEnvelope([]byte(`{
		"notification_id": "0b0e7d1e-5c4f-4a36-9b1c-6a5f0e1b2c3d",
		"request_id": "r1", "user_id": "u1", "notification_type": "push",
		"template_code": "promo", "timestamp": "2025-03-01T12:00:00Z",
		"future_field": {"nested": true}
	}`))
	require.NoError(t, err)
	assert.Equal(t, notification.ChannelPush, env.Channel)
	assert.NoError(t, env.Validate())

	_, err = notification.DecodeEnvelope([]byte(`{`))
	assert.Error(t, err)
}

func TestEnvelope_Validate(t *testing.T) {
	t.Parallel()

	env := notification.NewEnvelope(validRequest(), "not-a-uuid", time.Time{})
	var ve *notification.ValidationError
	require.ErrorAs(t, env.Validate(), &ve)
	assert.Equal(t, []string{"notification_id", "timestamp"}, ve.Fields.Fields())
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.False(t, notification.StatusPending.Terminal())
	assert.True(t, notification.StatusDelivered.Terminal())
	assert.True(t, notification.StatusFailed.Terminal())
	assert.False(t, notification.Status("queued").Valid())
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	cause := errors.New("redis down")
	de := &notification.DispatchError{Op: "idempotency.get", Retryable: true, Err: cause}
	assert.True(t, notification.IsRetryable(de))
	assert.ErrorIs(t, de, cause)
	assert.Contains(t, de.Error(), "idempotency.get")

	assert.False(t, notification.IsRetryable(&notification.DispatchError{Op: "route", Err: cause}))
	assert.False(t, notification.IsRetryable(cause))

	re := &notification.RenderError{TemplateCode: "welcome", Err: cause}
	assert.ErrorIs(t, re, cause)
	assert.Contains(t, re.Error(), "welcome")

	dle := &notification.DeliveryError{Channel: notification.ChannelPush, Err: cause}
	assert.ErrorIs(t, dle, cause)
	assert.Contains(t, dle.Error(), "push")
}
