package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/notifyhub/internal/directory"
	"github.com/dmitrymomot/notifyhub/internal/dispatcher"
	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/internal/worker"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
	pkgconfig "github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/email"
	"github.com/dmitrymomot/notifyhub/pkg/environment"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/mongo"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
	"github.com/dmitrymomot/notifyhub/pkg/ratelimiter"
	"github.com/dmitrymomot/notifyhub/pkg/redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DeliveryLive = "live"
	DeliveryLog  = "log"

	SourceMongo = "mongo"
	SourceHTTP  = "http"
	SourceFile  = "file"
)

type App struct {
	Env      environment.Environment `env:"APP_ENV" envDefault:"development"`
	LogLevel string                  `env:"LOG_LEVEL"`
}

type Gateway struct {
	App

	HTTP       httpserver.Config
	Redis      redis.Config
	Postgres   pg.Config
	Broker     broker.Config
	Dispatcher dispatcher.Config
	Reconciler status.ReconcilerConfig

	IdempotencyKeyPrefix string        `env:"IDEMPOTENCY_KEY_PREFIX" envDefault:"idempotency:"`
	ReadinessTimeout     time.Duration `env:"READINESS_TIMEOUT" envDefault:"3s"`
	RunMigrations        bool          `env:"PG_RUN_MIGRATIONS" envDefault:"true"`

	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimit        ratelimiter.Config

	// TrustedProxyHeaders are consulted in order for the client address.
	TrustedProxyHeaders []string `env:"TRUSTED_PROXY_HEADERS" envDefault:"X-Forwarded-For,X-Real-IP" envSeparator:","`
}

type Worker struct {
	App

	Channel        notification.Channel `env:"WORKER_CHANNEL,required"`
	Prefetch       int                  `env:"WORKER_PREFETCH" envDefault:"1"`
	HandlerTimeout time.Duration        `env:"WORKER_HANDLER_TIMEOUT" envDefault:"30s"`
	RequeueDelay   time.Duration        `env:"WORKER_REQUEUE_DELAY" envDefault:"1s"`
	CallTimeout    time.Duration        `env:"CALL_TIMEOUT" envDefault:"5s"`
	DeliveryMode   string               `env:"DELIVERY_MODE" envDefault:"live"` // live | log

	Postgres  pg.Config
	Broker    broker.Config
	Mongo     mongo.Config
	Email     email.Config
	Directory directory.Config
	Push      worker.PushConfig

	TemplateSource    string        `env:"TEMPLATE_SOURCE" envDefault:"mongo"` // mongo | file
	TemplateFixtures  string        `env:"TEMPLATE_FIXTURES" envDefault:"./fixtures/templates.yaml"`
	TemplateCacheSize int           `env:"TEMPLATE_CACHE_SIZE" envDefault:"256"`
	TemplateCacheTTL  time.Duration `env:"TEMPLATE_CACHE_TTL" envDefault:"5m"`

	UserSource   string `env:"USER_SOURCE" envDefault:"http"` // http | file
	UserFixtures string `env:"USER_FIXTURES" envDefault:"./fixtures/users.yaml"`
}

// CLI is what notifyctl needs: the status store, the broker for redrive
// and the template store for seeding.
type CLI struct {
	App

	Postgres   pg.Config
	Redis      redis.Config
	Broker     broker.Config
	Mongo      mongo.Config
	Dispatcher dispatcher.Config

	IdempotencyKeyPrefix string `env:"IDEMPOTENCY_KEY_PREFIX" envDefault:"idempotency:"`
}

func LoadGateway(opts ...pkgconfig.Option) (Gateway, error) {
	var cfg Gateway
	if err := pkgconfig.Load(&cfg, opts...); err != nil {
		return Gateway{}, err
	}
	return cfg, cfg.Validate()
}

func (g Gateway) Validate() error {
	if g.Reconciler.Enabled && (g.Reconciler.After <= 0 || g.Reconciler.Interval <= 0) {
		return fmt.Errorf("%w: RECONCILE_AFTER and RECONCILE_INTERVAL must be positive", ErrInvalidConfig)
	}
	if g.RateLimitEnabled {
		if err := g.RateLimit.Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}
	if g.Dispatcher.IdempotencyTTL <= 0 {
		return fmt.Errorf("%w: IDEMPOTENCY_TTL must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadWorker loads and validates the worker settings. WORKER_CHANNEL is
// matched case-insensitively.
func LoadWorker(opts ...pkgconfig.Option) (Worker, error) {
	var cfg Worker
	if err := pkgconfig.Load(&cfg, opts...); err != nil {
		return Worker{}, err
	}
	ch, err := notification.ParseChannel(cfg.Channel.String())
	if err != nil {
		return Worker{}, errors.Join(ErrInvalidConfig, err)
	}
	cfg.Channel = ch
	return cfg, cfg.Validate()
}

func (w Worker) Validate() error {
	var errs []error
	if !w.Channel.Valid() {
		errs = append(errs, fmt.Errorf("WORKER_CHANNEL %q is not a known channel", w.Channel))
	}
	if w.Prefetch < 1 {
		errs = append(errs, errors.New("WORKER_PREFETCH must be at least 1"))
	}
	if w.DeliveryMode != DeliveryLive && w.DeliveryMode != DeliveryLog {
		errs = append(errs, fmt.Errorf("DELIVERY_MODE must be %q or %q", DeliveryLive, DeliveryLog))
	}
	if w.TemplateSource != SourceMongo && w.TemplateSource != SourceFile {
		errs = append(errs, fmt.Errorf("TEMPLATE_SOURCE must be %q or %q", SourceMongo, SourceFile))
	}
	if w.UserSource != SourceHTTP && w.UserSource != SourceFile {
		errs = append(errs, fmt.Errorf("USER_SOURCE must be %q or %q", SourceHTTP, SourceFile))
	}
	if w.Channel == notification.ChannelPush && w.DeliveryMode == DeliveryLive && w.Push.URL == "" {
		errs = append(errs, errors.New("PUSH_GATEWAY_URL is required for live push delivery"))
	}
	if w.Env.IsProduction() {
		if w.DeliveryMode == DeliveryLog {
			errs = append(errs, errors.New("DELIVERY_MODE=log is not allowed in production"))
		}
		if w.Channel == notification.ChannelEmail && w.Email.Provider != email.ProviderPostmark {
			errs = append(errs, errors.New("EMAIL_PROVIDER must be postmark in production"))
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

func LoadCLI(opts ...pkgconfig.Option) (CLI, error) {
	var cfg CLI
	if err := pkgconfig.Load(&cfg, opts...); err != nil {
		return CLI{}, err
	}
	return cfg, nil
}
