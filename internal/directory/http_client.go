package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

type Config struct {
	URL           string        `env:"USER_SERVICE_URL" envDefault:"http://localhost:3001"`
	Timeout       time.Duration `env:"USER_SERVICE_TIMEOUT" envDefault:"5s"`
	RetryAttempts uint64        `env:"USER_SERVICE_RETRY_ATTEMPTS" envDefault:"2"`
	RetryBase     time.Duration `env:"USER_SERVICE_RETRY_BASE" envDefault:"200ms"`
}

// apiResponse is the user service envelope.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    *User  `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

const maxResponseSize = 1 << 20

type HTTPClient struct {
	base    *url.URL
	client  *http.Client
	cfg     Config
	log     *slog.Logger
	backoff func() retry.Backoff
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *HTTPClient) {
		if l != nil {
			h.log = l
		}
	}
}

func NewHTTPClient(cfg Config, opts ...Option) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: bad USER_SERVICE_URL %q", ErrUnavailable, cfg.URL)
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}

	h := &HTTPClient{
		base:   base,
		client: cleanhttp.DefaultPooledClient(),
		cfg:    cfg,
		log:    slog.Default(),
	}
	h.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(cfg.RetryAttempts, retry.NewExponential(cfg.RetryBase))
	}
	for _, opt := range opts {
		opt(h)
	}
	if cfg.Timeout > 0 {
		h.client.Timeout = cfg.Timeout
	}
	h.log = h.log.With(logger.Component("directory"))
	return h, nil
}

func (h *HTTPClient) GetUser(ctx context.Context, userID string) (User, error) {
	endpoint := h.base.JoinPath("api", "v1", "users").String() + "/" + url.PathEscape(userID)

	var user User
	err := retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		u, err := h.fetch(ctx, endpoint)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				h.log.WarnContext(ctx, "user lookup failed, retrying", logger.UserID(userID), logger.Error(err))
				return retry.RetryableError(err)
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (h *HTTPClient) fetch(ctx context.Context, endpoint string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return User{}, errors.Join(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return User{}, errors.Join(ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return User{}, ErrUserNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return User{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return User{}, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return User{}, errors.Join(ErrInvalidResponse, err)
	}
	if !out.Success || out.Data == nil {
		return User{}, fmt.Errorf("%w: %s", ErrInvalidResponse, firstNonEmpty(out.Error, out.Message))
	}
	return *out.Data, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return "unsuccessful response"
}
