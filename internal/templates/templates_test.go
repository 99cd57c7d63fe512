package templates_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/templates"
	"github.com/dmitrymomot/notifyhub/pkg/cache"
)

var welcome = templates.Template{
	Code:     "welcome",
	Subject:  "Welcome {{name}}!",
	Body:     `<h1>Hello {{name}}!</h1><p><a href="{{link}}">Open</a></p>`,
	Language: "en",
	Version:  1,
}

func TestRenderer_Email(t *testing.T) {
	t.Parallel()

	out, err := templates.NewRenderer().Render(notification.ChannelEmail, welcome, map[string]any{
		"name": "Ann", "link": "https://x",
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome Ann!", out.Subject)
	assert.Contains(t, out.Body, "Hello Ann!")
	assert.Contains(t, out.Body, `href="https://x"`)
}

func TestRenderer_EmailEscapesVariables(t *testing.T) {
	t.Parallel()

	out, err := templates.NewRenderer().Render(notification.ChannelEmail, welcome, map[string]any{
		"name": "<script>alert(1)</script>", "link": "javascript:alert(1)",
	})
	require.NoError(t, err)
	assert.NotContains(t, out.Body, "<script>")
	assert.Contains(t, out.Body, "&lt;script&gt;")
	assert.NotContains(t, out.Body, "javascript:alert")
}

func TestRenderer_PushIsPlainText(t *testing.T) {
	t.Parallel()

	tpl := templates.Template{Code: "promo", Subject: "Sale", Body: "{{discount}}% off <today>", Version: 1}
	out, err := templates.NewRenderer().Render(notification.ChannelPush, tpl, map[string]any{"discount": 20})
	require.NoError(t, err)
	assert.Equal(t, "Sale", out.Subject)
	assert.Equal(t, "20% off <today>", out.Body)
}

func TestRenderer_MissingVariable(t *testing.T) {
	t.Parallel()

	for _, ch := range notification.Channels() {
		_, err := templates.NewRenderer().Render(ch, welcome, map[string]any{"name": "Ann"})
		var re *notification.RenderError
		require.ErrorAs(t, err, &re, ch)
		assert.Equal(t, "welcome", re.TemplateCode)
	}

	_, err := templates.NewRenderer().Render(notification.ChannelEmail, welcome, nil)
	assert.Error(t, err)
}

func TestRenderer_Syntax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		vars map[string]any
		want string
	}{
		{"native dot syntax", "Hi {{.name}}", map[string]any{"name": "Ann"}, "Hi Ann"},
		{"nested path", "Hi {{user.name}}", map[string]any{"user": map[string]any{"name": "Ann"}}, "Hi Ann"},
		{"trim markers", "Hi {{- name -}} !", map[string]any{"name": "Ann"}, "HiAnn!"},
		{"conditionals keep keywords", "{{if .vip}}VIP{{else}}regular{{end}}", map[string]any{"vip": true}, "VIP"},
		{"no placeholders", "static text", nil, "static text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tpl := templates.Template{Code: "t", Body: tt.body, Version: 1}
			out, err := templates.NewRenderer().Render(notification.ChannelPush, tpl, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Body)
		})
	}
}

func TestRenderer_BadTemplate(t *testing.T) {
	t.Parallel()

	tpl := templates.Template{Code: "broken", Body: "{{if name}}", Version: 1}
	_, err := templates.NewRenderer().Render(notification.ChannelPush, tpl, map[string]any{"name": "x"})
	var re *notification.RenderError
	assert.ErrorAs(t, err, &re)
}

func TestMemory_HighestVersionWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	v2 := welcome
	v2.Version = 2
	v2.Subject = "Hey {{name}}"

	m := templates.NewMemory(v2, welcome)
	got, err := m.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, templates.ErrTemplateNotFound)

	assert.ErrorIs(t, m.Put(templates.Template{Code: "x"}), templates.ErrInvalidTemplate)
}

func TestMemory_LoadYAML(t *testing.T) {
	t.Parallel()

	m := templates.NewMemory()
	require.NoError(t, m.LoadYAML(strings.NewReader(`
templates:
  - code: welcome
    subject: "Welcome {{name}}!"
    content: "<p>Hello {{name}}</p>"
    language: en
  - code: promo
    subject: Sale
    content: "{{discount}}% off"
    version: 3
`)))

	w, err := m.Get(context.Background(), "welcome")
	require.NoError(t, err)
	assert.Equal(t, 1, w.Version)

	p, err := m.Get(context.Background(), "promo")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Version)

	err = m.LoadYAML(strings.NewReader("templates:\n  - code: empty\n"))
	assert.ErrorIs(t, err, templates.ErrInvalidFixture)
}

type countingStore struct {
	calls atomic.Int32
	next  templates.Store
}

func (c *countingStore) Get(ctx context.Context, code string) (templates.Template, error) {
	c.calls.Add(1)
	return c.next.Get(ctx, code)
}

func TestCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	backing := &countingStore{next: templates.NewMemory(welcome)}
	c := templates.NewCached(backing, 8, time.Minute, cache.WithClock(func() time.Time { return now }))

	for range 3 {
		got, err := c.Get(ctx, "welcome")
		require.NoError(t, err)
		assert.Equal(t, welcome, got)
	}
	assert.Equal(t, int32(1), backing.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := c.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, int32(2), backing.calls.Load())

	c.Invalidate("welcome")
	_, err = c.Get(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, int32(3), backing.calls.Load())

	for range 2 {
		_, err = c.Get(ctx, "missing")
		assert.True(t, errors.Is(err, templates.ErrTemplateNotFound))
	}
	assert.Equal(t, int32(5), backing.calls.Load(), "misses are not cached")
}
