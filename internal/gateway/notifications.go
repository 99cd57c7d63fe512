package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/internal/dispatcher"
	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/pkg/binder"
	"github.com/dmitrymomot/notifyhub/pkg/clientip"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/ratelimiter"
)

// HeaderReplayed marks a response served from the idempotency store.
const HeaderReplayed = "Idempotent-Replayed"

// Submitter accepts notification requests. *dispatcher.Dispatcher
// implements it.
type Submitter interface {
	Submit(ctx context.Context, req notification.Request) (dispatcher.Result, error)
}

// StatusLookup resolves the latest record of a request. status.Tracker
// implementations satisfy it.
type StatusLookup interface {
	Lookup(ctx context.Context, requestID string) (status.Record, error)
}

type NotificationService struct {
	submitter    Submitter
	statuses     StatusLookup
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
	limiter      ratelimiter.Limiter
}

type ServiceOption func(*NotificationService)

// WithSubmitLimiter throttles submissions per client address. Status
// reads are not limited.
func WithSubmitLimiter(l ratelimiter.Limiter) ServiceOption {
	return func(s *NotificationService) {
		s.limiter = l
	}
}

func NewNotificationService(sub Submitter, statuses StatusLookup, log *slog.Logger, opts ...ServiceOption) *NotificationService {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("gateway"))
	s := &NotificationService{
		submitter:    sub,
		statuses:     statuses,
		log:          log,
		errorHandler: handler.NewErrorHandler(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the routes to mount under /api/v1/notifications.
func (s *NotificationService) Handle() http.Handler {
	r := chi.NewRouter()

	r.With(s.limitSubmit).Post("/", handler.Wrap(s.submit,
		handler.WithBinders[handler.Context, notification.Request](binder.JSON()),
		handler.WithErrorHandler[handler.Context, notification.Request](s.errorHandler),
	))

	r.Get("/{request_id}/status", handler.Wrap(s.status,
		handler.WithBinders[handler.Context, StatusRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, StatusRequest](s.errorHandler),
	))

	return r
}

func (s *NotificationService) limitSubmit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return ratelimiter.Middleware(s.limiter,
		func(r *http.Request) string { return clientip.FromContext(r.Context()) },
		ratelimiter.WithDeniedHandler(func(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result) {
			_ = handler.JSONError(handler.ErrTooManyRequests,
				handler.WithJSONMessage("Too many notification requests, retry later"),
			).Render(w, r)
		}),
		// throttling is load protection; a limiter outage must not stop intake
		ratelimiter.WithErrorHandler(func(_ http.ResponseWriter, r *http.Request, err error) bool {
			s.log.WarnContext(r.Context(), "rate limiter unavailable, admitting request", logger.Error(err))
			return true
		}),
	)(next)
}

func (s *NotificationService) submit(ctx handler.Context, req notification.Request) handler.Response {
	res, err := s.submitter.Submit(ctx, req)
	if err != nil {
		return s.submitError(ctx, req, err)
	}

	opts := []handler.JSONOption{
		handler.WithJSONStatus(http.StatusCreated),
		handler.WithJSONMessage("Notification queued successfully"),
	}
	if res.Duplicate {
		opts = append(opts, handler.WithJSONHeader(HeaderReplayed, "true"))
	}
	return handler.JSON(res.Receipt, opts...)
}

func (s *NotificationService) submitError(ctx context.Context, req notification.Request, err error) handler.Response {
	var ve *notification.ValidationError
	if errors.As(err, &ve) {
		return handler.JSONError(err,
			handler.WithJSONStatus(http.StatusBadRequest),
			handler.WithJSONMessage("Invalid notification request"),
			handler.WithJSONDetails(fieldDetails(ve)),
		)
	}

	s.log.ErrorContext(ctx, "failed to submit notification",
		logger.RequestID(req.RequestID),
		logger.Error(err),
	)

	if notification.IsRetryable(err) {
		return handler.JSONError(err,
			handler.WithJSONStatus(http.StatusServiceUnavailable),
			handler.WithJSONMessage("Notification service temporarily unavailable, retry with the same request_id"),
		)
	}
	return handler.JSONError(err,
		handler.WithJSONStatus(http.StatusInternalServerError),
		handler.WithJSONMessage("Failed to process notification request"),
	)
}

type StatusRequest struct {
	RequestID string `path:"request_id"`
}

func (s *NotificationService) status(ctx handler.Context, req StatusRequest) handler.Response {
	rec, err := s.statuses.Lookup(ctx, req.RequestID)
	switch {
	case err == nil:
		return handler.JSON(rec, handler.WithJSONMessage("Notification status retrieved"))
	case errors.Is(err, status.ErrNotFound):
		return handler.JSONError(handler.ErrNotFound,
			handler.WithJSONMessage("No notification found for request_id "+req.RequestID),
		)
	case errors.Is(err, status.ErrUnavailable):
		s.log.ErrorContext(ctx, "status lookup failed", logger.RequestID(req.RequestID), logger.Error(err))
		return handler.JSONError(err,
			handler.WithJSONStatus(http.StatusServiceUnavailable),
			handler.WithJSONMessage("Status store temporarily unavailable"),
		)
	default:
		s.log.ErrorContext(ctx, "status lookup failed", logger.RequestID(req.RequestID), logger.Error(err))
		return handler.JSONError(err, handler.WithJSONMessage("Failed to load notification status"))
	}
}

func fieldDetails(ve *notification.ValidationError) map[string][]string {
	details := make(map[string][]string)
	for _, f := range ve.Fields {
		details[f.Field] = append(details[f.Field], f.Message)
	}
	return details
}
