package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/pkg/webhook"
)

type PushConfig struct {
	URL     string        `env:"PUSH_GATEWAY_URL" envDefault:"http://localhost:8088/v1/push"`
	Token   string        `env:"PUSH_GATEWAY_TOKEN"`
	Timeout time.Duration `env:"PUSH_GATEWAY_TIMEOUT" envDefault:"5s"`
	// SigningSecret, when set, adds X-Webhook-* HMAC headers to each call.
	SigningSecret string `env:"PUSH_GATEWAY_SIGNING_SECRET"`
}

type pushRequest struct {
	Token    string            `json:"token"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Priority *int              `json:"priority,omitempty"`
	Data     map[string]string `json:"data"`
}

// PushDeliverer posts one JSON request per notification to a push gateway.
// Any non-2xx answer is a failed delivery.
type PushDeliverer struct {
	cfg    PushConfig
	client *http.Client
	now    func() time.Time
}

type PushOption func(*PushDeliverer)

func WithPushHTTPClient(c *http.Client) PushOption {
	return func(d *PushDeliverer) {
		if c != nil {
			d.client = c
		}
	}
}

func WithPushClock(now func() time.Time) PushOption {
	return func(d *PushDeliverer) {
		if now != nil {
			d.now = now
		}
	}
}

func NewPushDeliverer(cfg PushConfig, opts ...PushOption) *PushDeliverer {
	d := &PushDeliverer{cfg: cfg, client: cleanhttp.DefaultPooledClient(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if cfg.Timeout > 0 {
		d.client.Timeout = cfg.Timeout
	}
	return d
}

func (d *PushDeliverer) Channel() notification.Channel { return notification.ChannelPush }

func (d *PushDeliverer) Deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(pushRequest{
		Token:    msg.Recipient,
		Title:    msg.Subject,
		Body:     msg.Body,
		Priority: msg.Priority,
		Data: map[string]string{
			"notification_id": msg.NotificationID,
			"request_id":      msg.RequestID,
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	}
	if d.cfg.SigningSecret != "" {
		sig, err := webhook.Sign(d.cfg.SigningSecret, msg.NotificationID, payload, d.now())
		if err != nil {
			return err
		}
		sig.Apply(req.Header)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Join(ErrPushUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return fmt.Errorf("%w: status %d: %s", ErrPushRejected, resp.StatusCode, responseExcerpt(resp.Body))
}

// responseExcerpt reads the head of a rejection body as printable text.
// A character split by the read limit is dropped.
func responseExcerpt(r io.Reader) []byte {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	b = bytes.ToValidUTF8(b, nil)
	b = bytes.ReplaceAll(b, []byte{0}, nil)
	return bytes.TrimSpace(b)
}
