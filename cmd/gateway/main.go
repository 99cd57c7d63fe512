// Command gateway serves the notification HTTP API. It checks idempotency in
// Redis, records PENDING status in Postgres and publishes envelopes to the
// broker. With RECONCILE_ENABLED it also fails orphaned PENDING records.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifyhub/internal/config"
	"github.com/dmitrymomot/notifyhub/internal/dispatcher"
	"github.com/dmitrymomot/notifyhub/internal/gateway"
	"github.com/dmitrymomot/notifyhub/internal/idempotency"
	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
	"github.com/dmitrymomot/notifyhub/pkg/clientip"
	"github.com/dmitrymomot/notifyhub/pkg/correlation"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
	"github.com/dmitrymomot/notifyhub/pkg/ratelimiter"
	"github.com/dmitrymomot/notifyhub/pkg/redis"
)

const service = "notifyhub-gateway"

func main() {
	if err := run(); err != nil {
		slog.Error("gateway stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadGateway()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env.String(), service),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(correlation.LoggerExtractor(), clientip.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := status.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
			return err
		}
	}

	b, err := broker.DialAMQP(ctx, cfg.Broker, notification.Topology(), broker.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	tracker := status.NewPostgresTracker(pool)
	disp := dispatcher.New(
		idempotency.NewRedisStore(rdb, idempotency.WithKeyPrefix(cfg.IdempotencyKeyPrefix)),
		tracker,
		b,
		cfg.Dispatcher,
		dispatcher.WithLogger(log),
	)

	opts := []gateway.Option{
		gateway.WithLogger(log),
		gateway.WithClientIP(clientip.NewResolver(cfg.TrustedProxyHeaders...)),
		gateway.WithReadinessTimeout(cfg.ReadinessTimeout),
		gateway.WithReadinessChecks(
			httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)},
			httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
			httpserver.Check{Name: "broker", Fn: b.Healthcheck},
		),
	}
	if cfg.RateLimitEnabled {
		limiter, err := ratelimiter.NewBucket(
			ratelimiter.NewRedisStore(rdb, ratelimiter.WithRedisKeyPrefix("ratelimit:submit:")),
			cfg.RateLimit,
		)
		if err != nil {
			return err
		}
		opts = append(opts, gateway.WithRateLimiter(limiter))
	}
	router := gateway.Router(disp, tracker, opts...)
	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, router)
	})
	if cfg.Reconciler.Enabled {
		g.Go(status.NewReconciler(tracker, cfg.Reconciler, status.WithReconcilerLogger(log)).Run(ctx))
	}

	return g.Wait()
}
