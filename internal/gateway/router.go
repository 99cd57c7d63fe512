package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/pkg/clientip"
	"github.com/dmitrymomot/notifyhub/pkg/correlation"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/ratelimiter"
)

const defaultReadinessTimeout = 3 * time.Second

type routerConfig struct {
	log              *slog.Logger
	checks           []httpserver.Check
	readinessTimeout time.Duration
	clientIP         *clientip.Resolver
	limiter          ratelimiter.Limiter
}

type Option func(*routerConfig)

func WithLogger(l *slog.Logger) Option {
	return func(c *routerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithReadinessChecks adds probes run by GET /ready.
func WithReadinessChecks(checks ...httpserver.Check) Option {
	return func(c *routerConfig) {
		c.checks = append(c.checks, checks...)
	}
}

func WithReadinessTimeout(d time.Duration) Option {
	return func(c *routerConfig) {
		if d > 0 {
			c.readinessTimeout = d
		}
	}
}

// WithClientIP sets how the access log resolves client addresses.
func WithClientIP(res *clientip.Resolver) Option {
	return func(c *routerConfig) {
		if res != nil {
			c.clientIP = res
		}
	}
}

// WithRateLimiter throttles submissions per client address.
func WithRateLimiter(l ratelimiter.Limiter) Option {
	return func(c *routerConfig) {
		c.limiter = l
	}
}

// Router assembles the gateway routes.
func Router(sub Submitter, statuses StatusLookup, opts ...Option) chi.Router {
	cfg := &routerConfig{
		log:              slog.Default(),
		readinessTimeout: defaultReadinessTimeout,
		clientIP:         clientip.NewResolver(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(correlation.Middleware)
	r.Use(clientip.Middleware(cfg.clientIP))
	r.Use(middleware.Recoverer)
	r.Use(accessLog(cfg.log))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = handler.JSONError(handler.ErrNotFound).Render(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = handler.JSONError(handler.ErrMethodNotAllowed).Render(w, r)
	})

	r.Get("/health", httpserver.LivenessHandler())
	r.Get("/ready", httpserver.ReadinessHandler(cfg.log, cfg.readinessTimeout, cfg.checks...))

	r.Mount("/api/v1/notifications", NewNotificationService(sub, statuses, cfg.log, WithSubmitLimiter(cfg.limiter)).Handle())

	return r
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	log = log.With(logger.Component("http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				logger.Duration(time.Since(start)),
			)
		})
	}
}
