package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

func isClientError(statusCode int) bool {
	return statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError
}

func determineLogLevel(statusCode int) slog.Level {
	if isClientError(statusCode) {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// NewErrorHandler logs binding and rendering failures and answers with the
// JSON error envelope. The correlation id comes from the logger's context
// extractors.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		status := errorStatus(err)

		log.LogAttrs(r.Context(), determineLogLevel(status), "request error",
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
		}
	}
}
