// Package httpserver wraps net/http.Server with context-driven lifecycle and
// readiness probes.
//
// Run blocks until the context is cancelled or the listener fails, then
// shuts down gracefully within the configured timeout. Signal handling is
// left to the caller, usually via signal.NotifyContext and an errgroup:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
package httpserver
