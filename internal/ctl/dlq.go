package ctl

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func dlqCommand(b Backend) *cli.Command {
	return &cli.Command{
		Name:  "dlq",
		Usage: "Inspect and replay the failed queue",
		Commands: []*cli.Command{
			{
				Name:  "redrive",
				Usage: "Resubmit dead-lettered notifications under new notification ids",
				Description: `Each valid envelope on the failed queue is enqueued again with a fresh
notification_id and a new PENDING record. The original FAILED record is kept.
Envelopes that fail validation stay on the failed queue.`,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "maximum envelopes to take, 0 for all", Value: 100},
					jsonFlag,
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					redriver, dlq, err := b.DeadLetters(ctx)
					if err != nil {
						return err
					}
					res, err := redriver.Redrive(ctx, dlq, c.Int("limit"))
					if err != nil {
						return fmt.Errorf("redrive (resubmitted %d, skipped %d): %w", res.Resubmitted, res.Skipped, err)
					}
					if c.Bool("json") {
						return printJSON(c, map[string]int{"resubmitted": res.Resubmitted, "skipped": res.Skipped})
					}
					return printf(c, "resubmitted %d, skipped %d\n", res.Resubmitted, res.Skipped)
				},
			},
		},
	}
}
