package webhook_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/webhook"
)

var (
	now     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload = []byte(`{"token":"t","title":"Hi"}`)
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	sig, err := webhook.Sign("s3cret", "n-1", payload, now)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), sig.Timestamp)
	assert.Equal(t, "n-1", sig.ID)
	assert.Len(t, sig.Value, 64)

	h := http.Header{}
	sig.Apply(h)
	parsed, err := webhook.Parse(h)
	require.NoError(t, err)
	assert.Equal(t, sig, parsed)

	require.NoError(t, webhook.Verify("s3cret", payload, parsed, 5*time.Minute, now.Add(time.Minute)))
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	sig, err := webhook.Sign("s3cret", "n-1", payload, now)
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		payload []byte
		sig     webhook.Signature
		at      time.Time
		want    error
	}{
		{"wrong secret", "other", payload, sig, now, webhook.ErrSignatureMismatch},
		{"tampered payload", "s3cret", []byte(`{"token":"x"}`), sig, now, webhook.ErrSignatureMismatch},
		{"shifted timestamp", "s3cret", payload, webhook.Signature{Value: sig.Value, Timestamp: sig.Timestamp + 1}, now, webhook.ErrSignatureMismatch},
		{"too old", "s3cret", payload, sig, now.Add(10 * time.Minute), webhook.ErrSignatureExpired},
		{"from the future", "s3cret", payload, sig, now.Add(-2 * time.Minute), webhook.ErrSignatureExpired},
		{"missing secret", "", payload, sig, now, webhook.ErrMissingSecret},
		{"empty payload", "s3cret", nil, sig, now, webhook.ErrEmptyPayload},
		{"missing signature", "s3cret", payload, webhook.Signature{Timestamp: sig.Timestamp}, now, webhook.ErrMissingSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := webhook.Verify(tt.secret, tt.payload, tt.sig, 5*time.Minute, tt.at)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignValidation(t *testing.T) {
	t.Parallel()

	_, err := webhook.Sign("", "n-1", payload, now)
	assert.ErrorIs(t, err, webhook.ErrMissingSecret)

	_, err = webhook.Sign("s3cret", "n-1", nil, now)
	assert.ErrorIs(t, err, webhook.ErrEmptyPayload)
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("missing headers", func(t *testing.T) {
		t.Parallel()
		_, err := webhook.Parse(http.Header{})
		assert.ErrorIs(t, err, webhook.ErrMissingSignature)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		t.Parallel()
		h := http.Header{}
		h.Set(webhook.HeaderSignature, "abc")
		h.Set(webhook.HeaderTimestamp, "yesterday")
		_, err := webhook.Parse(h)
		assert.ErrorIs(t, err, webhook.ErrInvalidTimestamp)
	})
}
