package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/email"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Welcome Ann!",
		BodyHTML: "<p>Hi Ann</p>",
		Tag:      "welcome",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*email.SendEmailParams)
		field  string
	}{
		{"valid", func(*email.SendEmailParams) {}, ""},
		{"empty recipient", func(p *email.SendEmailParams) { p.SendTo = "" }, "SendTo"},
		{"malformed recipient", func(p *email.SendEmailParams) { p.SendTo = "user@" }, "SendTo"},
		{"blank subject", func(p *email.SendEmailParams) { p.Subject = "  " }, "Subject"},
		{"empty body", func(p *email.SendEmailParams) { p.BodyHTML = "" }, "BodyHTML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := validParams()
			tt.mutate(&p)

			err := p.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	t.Run("writes html and metadata", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		p := validParams()
		p.Metadata = map[string]string{"notification_id": "n-1"}

		require.NoError(t, email.NewDevSender(dir).SendEmail(context.Background(), p))

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)

		for _, f := range files {
			raw, err := os.ReadFile(filepath.Join(dir, f.Name()))
			require.NoError(t, err)
			switch {
			case strings.HasSuffix(f.Name(), ".html"):
				assert.Equal(t, "<p>Hi Ann</p>", string(raw))
				assert.Contains(t, f.Name(), "welcome")
			case strings.HasSuffix(f.Name(), ".json"):
				var meta map[string]any
				require.NoError(t, json.Unmarshal(raw, &meta))
				assert.Equal(t, "user@example.com", meta["send_to"])
				assert.Equal(t, map[string]any{"notification_id": "n-1"}, meta["metadata"])
			}
		}
	})

	t.Run("invalid params write nothing", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		p := validParams()
		p.SendTo = ""

		assert.ErrorIs(t, email.NewDevSender(dir).SendEmail(context.Background(), p), email.ErrInvalidParams)
		files, _ := os.ReadDir(dir)
		assert.Empty(t, files)
	})

	t.Run("unwritable directory", func(t *testing.T) {
		t.Parallel()
		err := email.NewDevSender("/dev/null/nope").SendEmail(context.Background(), validParams())
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := email.NewDevSender(t.TempDir()).SendEmail(ctx, validParams())
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	s, err := email.NewSender(email.Config{Provider: email.ProviderDev, DevDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, s)

	_, err = email.NewSender(email.Config{Provider: "smtp"})
	assert.ErrorIs(t, err, email.ErrUnknownProvider)

	_, err = email.NewSender(email.Config{Provider: email.ProviderPostmark})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}

func TestNewPostmarkClient(t *testing.T) {
	t.Parallel()

	valid := email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "noreply@example.com",
	}

	client, err := email.NewPostmarkClient(valid)
	require.NoError(t, err)
	assert.NotNil(t, client)

	bad := valid
	bad.SenderEmail = "nope"
	_, err = email.NewPostmarkClient(bad)
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "SenderEmail")

	bad = valid
	bad.ReplyTo = "@x.com"
	_, err = email.NewPostmarkClient(bad)
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	assert.Panics(t, func() { email.MustNewPostmarkClient(email.Config{}) })

	err = client.SendEmail(context.Background(), email.SendEmailParams{})
	assert.ErrorIs(t, err, email.ErrInvalidParams)
}
