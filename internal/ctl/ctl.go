package ctl

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifyhub/internal/dispatcher"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/internal/templates"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
)

// StatusReader is the read side of the status tracker.
type StatusReader interface {
	Lookup(ctx context.Context, requestID string) (status.Record, error)
	History(ctx context.Context, notificationID string) ([]status.Event, error)
}

type Redriver interface {
	Redrive(ctx context.Context, g broker.Getter, limit int) (dispatcher.RedriveResult, error)
}

type TemplateWriter interface {
	Put(ctx context.Context, t templates.Template) error
}

// Backend opens the dependencies a command needs.
type Backend interface {
	Statuses(ctx context.Context) (StatusReader, error)
	Sweeper(ctx context.Context) (status.Sweeper, error)
	DeadLetters(ctx context.Context) (Redriver, broker.Getter, error)
	Templates(ctx context.Context) (TemplateWriter, error)
	Migrate(ctx context.Context) error
}

// New builds the notifyctl root command.
func New(b Backend, version string) *cli.Command {
	return &cli.Command{
		Name:    "notifyctl",
		Usage:   "Operate the notification pipeline",
		Version: version,
		Commands: []*cli.Command{
			statusCommand(b),
			dlqCommand(b),
			templatesCommand(b),
			reconcileCommand(b),
			migrateCommand(b),
		},
	}
}

func reconcileCommand(b Backend) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Fail PENDING records older than --after once",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "after", Usage: "age after which a PENDING record is orphaned", Value: time.Hour},
			&cli.IntFlag{Name: "batch", Usage: "records per sweep query", Value: 100},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			sweeper, err := b.Sweeper(ctx)
			if err != nil {
				return err
			}
			r := status.NewReconciler(sweeper, status.ReconcilerConfig{
				After:     c.Duration("after"),
				BatchSize: c.Int("batch"),
			})
			n, err := r.RunOnce(ctx)
			if err != nil {
				return err
			}
			return printf(c, "reconciled %d record(s)\n", n)
		},
	}
}

func migrateCommand(b Backend) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply status store migrations",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := b.Migrate(ctx); err != nil {
				return err
			}
			return printf(c, "migrations applied\n")
		},
	}
}
