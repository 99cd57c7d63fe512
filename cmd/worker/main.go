// Command worker consumes one channel queue and delivers each envelope
// through that channel's transport. WORKER_CHANNEL selects the queue;
// FAILED outcomes are dead-lettered to the failed queue.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifyhub/internal/config"
	"github.com/dmitrymomot/notifyhub/internal/directory"
	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/internal/templates"
	"github.com/dmitrymomot/notifyhub/internal/worker"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
	"github.com/dmitrymomot/notifyhub/pkg/correlation"
	"github.com/dmitrymomot/notifyhub/pkg/email"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/mongo"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
)

const service = "notifyhub-worker"

func main() {
	if err := run(); err != nil {
		slog.Error("worker stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWorker()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env.String(), service),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithAttr(logger.Channel(cfg.Channel.String())),
		logger.WithContextExtractors(correlation.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	users, err := newDirectory(cfg, log)
	if err != nil {
		return err
	}

	tpls, closeTemplates, err := newTemplates(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTemplates()

	deliverer, err := newDeliverer(cfg, log)
	if err != nil {
		return err
	}

	b, err := broker.DialAMQP(ctx, cfg.Broker, notification.Topology(), broker.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	proc, err := worker.NewProcessor(deliverer, users, tpls, status.NewPostgresTracker(pool),
		worker.WithCallTimeout(cfg.CallTimeout),
		worker.WithLogger(log),
	)
	if err != nil {
		return err
	}

	q, err := notification.Route(cfg.Channel)
	if err != nil {
		return err
	}
	consumer, err := broker.NewConsumer(b, q.Name, proc,
		broker.WithPrefetch(cfg.Prefetch),
		broker.WithHandlerTimeout(cfg.HandlerTimeout),
		broker.WithRequeueDelay(cfg.RequeueDelay),
		broker.WithDeadLetter(b, notification.FailedRoutingKey),
		broker.WithConsumerLogger(log),
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(consumer.Run(ctx))
	return g.Wait()
}

func newDirectory(cfg config.Worker, log *slog.Logger) (directory.Directory, error) {
	if cfg.UserSource == config.SourceFile {
		users := directory.NewMemory()
		if err := users.LoadFile(cfg.UserFixtures); err != nil {
			return nil, err
		}
		return users, nil
	}
	client, err := directory.NewHTTPClient(cfg.Directory, directory.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newTemplates returns the template store and a func releasing its
// connection.
func newTemplates(ctx context.Context, cfg config.Worker) (templates.Store, func(), error) {
	var (
		store   templates.Store
		closeFn = func() {}
	)

	switch cfg.TemplateSource {
	case config.SourceFile:
		tpls, err := templates.ReadFixtureFile(cfg.TemplateFixtures)
		if err != nil {
			return nil, nil, err
		}
		store = templates.NewMemory(tpls...)
	default:
		db, err := mongo.ConnectDatabase(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { _ = db.Client().Disconnect(context.Background()) }

		ms := templates.NewMongoStore(db)
		if err := ms.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		store = ms
	}

	if cfg.TemplateCacheSize > 0 {
		store = templates.NewCached(store, cfg.TemplateCacheSize, cfg.TemplateCacheTTL)
	}
	return store, closeFn, nil
}

func newDeliverer(cfg config.Worker, log *slog.Logger) (worker.Deliverer, error) {
	if cfg.DeliveryMode == config.DeliveryLog {
		return worker.NewLogDeliverer(cfg.Channel, log), nil
	}

	switch cfg.Channel {
	case notification.ChannelEmail:
		sender, err := email.NewSender(cfg.Email)
		if err != nil {
			return nil, err
		}
		return worker.NewEmailDeliverer(sender), nil
	case notification.ChannelPush:
		return worker.NewPushDeliverer(cfg.Push), nil
	default:
		return nil, fmt.Errorf("%w: no deliverer for channel %q", config.ErrInvalidConfig, cfg.Channel)
	}
}
