package ratelimiter

import (
	"net/http"
	"strconv"
	"time"
)

// KeyFunc extracts the bucket key from a request. An empty key skips
// the limiter.
type KeyFunc func(r *http.Request) string

// DeniedFunc writes the response for a rejected request. Rate limit
// headers are already set.
type DeniedFunc func(w http.ResponseWriter, r *http.Request, res *Result)

// ErrorFunc is called when the store fails. Returning true lets the
// request through.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error) bool

type middlewareConfig struct {
	denied  DeniedFunc
	onError ErrorFunc
	now     func() time.Time
}

type MiddlewareOption func(*middlewareConfig)

func WithDeniedHandler(fn DeniedFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.denied = fn
		}
	}
}

func WithErrorHandler(fn ErrorFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// Middleware rejects requests whose bucket is empty and reports the
// bucket state in X-RateLimit-* headers.
func Middleware(l Limiter, key KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		denied: func(w http.ResponseWriter, _ *http.Request, _ *Result) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		},
		onError: func(w http.ResponseWriter, _ *http.Request, _ error) bool {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return false
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), k)
			if err != nil {
				if cfg.onError(w, r, err) {
					next.ServeHTTP(w, r)
				}
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				secs := int((res.RetryAfter(cfg.now()) + time.Second - 1) / time.Second)
				h.Set("Retry-After", strconv.Itoa(max(secs, 1)))
				cfg.denied(w, r, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
