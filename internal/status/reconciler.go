package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

type ReconcilerConfig struct {
	Enabled   bool          `env:"RECONCILE_ENABLED" envDefault:"false"`
	After     time.Duration `env:"RECONCILE_AFTER" envDefault:"1h"`
	Interval  time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`
	BatchSize int           `env:"RECONCILE_BATCH_SIZE" envDefault:"100"`
}

// Reconciler fails records that stayed PENDING longer than After. Such
// records belong to envelopes whose publish failed after Create, or that
// were lost before any worker saw them.
type Reconciler struct {
	store  Sweeper
	cfg    ReconcilerConfig
	log    *slog.Logger
	now    func() time.Time
	detail string
}

type ReconcilerOption func(*Reconciler)

func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

func NewReconciler(store Sweeper, cfg ReconcilerConfig, opts ...ReconcilerOption) *Reconciler {
	if cfg.After <= 0 {
		cfg.After = time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	r := &Reconciler{
		store:  store,
		cfg:    cfg,
		log:    slog.Default(),
		now:    time.Now,
		detail: fmt.Sprintf("reconciler: no terminal status within %s", cfg.After),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("status.reconciler"))
	return r
}

// RunOnce sweeps one batch and returns how many records it failed.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	stale, err := r.store.StalePending(ctx, r.now().Add(-r.cfg.After), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, rec := range stale {
		_, err := r.store.Transition(ctx, rec.NotificationID, Failed(r.detail))
		switch {
		case err == nil:
			failed++
			r.log.WarnContext(ctx, "stale pending notification marked failed",
				logger.NotificationID(rec.NotificationID),
				logger.RequestID(rec.RequestID),
				logger.Channel(rec.Channel.String()),
			)
		case errors.Is(err, ErrAlreadyFinal), errors.Is(err, ErrNotFound):
			// a worker finished it between the scan and the update
		default:
			return failed, err
		}
	}
	return failed, nil
}

// Run returns a function suitable for errgroup. It sweeps every Interval
// until ctx is done. Sweep errors are logged, not returned.
func (r *Reconciler) Run(ctx context.Context) func() error {
	return func() error {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()

		r.log.InfoContext(ctx, "reconciler started",
			slog.Duration("after", r.cfg.After),
			slog.Duration("interval", r.cfg.Interval),
		)
		for {
			if n, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.ErrorContext(ctx, "reconcile sweep failed", logger.Error(err))
			} else if n > 0 {
				r.log.InfoContext(ctx, "reconcile sweep finished", slog.Int("failed", n))
			}

			select {
			case <-ctx.Done():
				r.log.InfoContext(ctx, "reconciler stopped")
				return nil
			case <-ticker.C:
			}
		}
	}
}
