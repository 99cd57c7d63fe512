// Command notifyctl is the operator CLI: status lookups, dead-letter
// redrive, template seeding, one-off reconciliation and migrations.
// Connections are opened on first use by the command that needs them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/notifyhub/internal/config"
	"github.com/dmitrymomot/notifyhub/internal/ctl"
	"github.com/dmitrymomot/notifyhub/internal/dispatcher"
	"github.com/dmitrymomot/notifyhub/internal/idempotency"
	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/internal/templates"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
	"github.com/dmitrymomot/notifyhub/pkg/correlation"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/mongo"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
	"github.com/dmitrymomot/notifyhub/pkg/redis"
)

const service = "notifyctl"

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "notifyctl:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadCLI()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env.String(), service),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(correlation.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &backend{cfg: cfg, log: log}
	defer b.Close()

	return ctl.New(b, version).Run(ctx, os.Args)
}

// backend implements ctl.Backend over the production stores.
type backend struct {
	cfg config.CLI
	log *slog.Logger

	pool   *pgxpool.Pool
	rdb    *goredis.Client
	broker *broker.AMQPBroker
	db     *mongodrv.Database
}

func (b *backend) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}
	pool, err := pg.Connect(ctx, b.cfg.Postgres)
	if err != nil {
		return nil, err
	}
	b.pool = pool
	return pool, nil
}

func (b *backend) tracker(ctx context.Context) (*status.PostgresTracker, error) {
	pool, err := b.postgres(ctx)
	if err != nil {
		return nil, err
	}
	return status.NewPostgresTracker(pool), nil
}

func (b *backend) Statuses(ctx context.Context) (ctl.StatusReader, error) {
	return b.tracker(ctx)
}

func (b *backend) Sweeper(ctx context.Context) (status.Sweeper, error) {
	return b.tracker(ctx)
}

// DeadLetters builds a dispatcher for redrive. It shares the gateway's
// idempotency store so replays see the redriven notification.
func (b *backend) DeadLetters(ctx context.Context) (ctl.Redriver, broker.Getter, error) {
	tracker, err := b.tracker(ctx)
	if err != nil {
		return nil, nil, err
	}
	if b.rdb == nil {
		rdb, err := redis.Connect(ctx, b.cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		b.rdb = rdb
	}
	if b.broker == nil {
		br, err := broker.DialAMQP(ctx, b.cfg.Broker, notification.Topology(), broker.WithLogger(b.log))
		if err != nil {
			return nil, nil, err
		}
		b.broker = br
	}
	idem := idempotency.NewRedisStore(b.rdb, idempotency.WithKeyPrefix(b.cfg.IdempotencyKeyPrefix))
	d := dispatcher.New(idem, tracker, b.broker, b.cfg.Dispatcher,
		dispatcher.WithLogger(b.log),
	)
	return d, b.broker, nil
}

func (b *backend) Templates(ctx context.Context) (ctl.TemplateWriter, error) {
	if b.db == nil {
		db, err := mongo.ConnectDatabase(ctx, b.cfg.Mongo)
		if err != nil {
			return nil, err
		}
		b.db = db
	}
	store := templates.NewMongoStore(b.db)
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (b *backend) Migrate(ctx context.Context) error {
	pool, err := b.postgres(ctx)
	if err != nil {
		return err
	}
	return status.Migrate(ctx, pool, b.cfg.Postgres, b.log)
}

func (b *backend) Close() {
	if b.broker != nil {
		_ = b.broker.Close()
	}
	if b.db != nil {
		_ = b.db.Client().Disconnect(context.Background())
	}
	if b.rdb != nil {
		_ = b.rdb.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
