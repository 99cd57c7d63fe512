// Package logger builds *slog.Logger instances for notifyhub processes.
//
// New applies functional options (format, level, static attributes, context
// extractors) and wraps the handler with LogHandlerDecorator so request-scoped
// values such as the HTTP request id are attached to every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "gateway"),
//	    logger.WithContextExtractors(correlation.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "notification queued",
//	    logger.NotificationID(id),
//	    logger.Channel("email"),
//	)
//
// Attribute helpers in attr.go keep key names consistent across services.
// Helpers for identifiers return an empty slog.Attr for empty input, which
// slog drops.
package logger
