package ctl

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifyhub/internal/status"
)

type statusReport struct {
	Record  status.Record  `json:"record"`
	History []status.Event `json:"history,omitempty"`
}

func statusCommand(b Backend) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the latest notification status of a request",
		ArgsUsage: "<request-id>",
		Flags:     []cli.Flag{jsonFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: notifyctl status <request-id>")
			}
			requestID := c.Args().First()

			statuses, err := b.Statuses(ctx)
			if err != nil {
				return err
			}
			rec, err := statuses.Lookup(ctx, requestID)
			if errors.Is(err, status.ErrNotFound) {
				return fmt.Errorf("no notification found for request %q", requestID)
			}
			if err != nil {
				return fmt.Errorf("lookup status: %w", err)
			}

			history, err := statuses.History(ctx, rec.NotificationID)
			if err != nil && !errors.Is(err, status.ErrNotFound) {
				return fmt.Errorf("load history: %w", err)
			}

			if c.Bool("json") {
				return printJSON(c, statusReport{Record: rec, History: history})
			}
			return printStatus(c, rec, history)
		},
	}
}

func printStatus(c *cli.Command, rec status.Record, history []status.Event) error {
	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "notification_id\t%s\n", rec.NotificationID)
	_, _ = fmt.Fprintf(w, "request_id\t%s\n", rec.RequestID)
	_, _ = fmt.Fprintf(w, "channel\t%s\n", rec.Channel)
	_, _ = fmt.Fprintf(w, "status\t%s\n", rec.Status)
	if rec.SkipReason != "" {
		_, _ = fmt.Fprintf(w, "skip_reason\t%s\n", rec.SkipReason)
	}
	if rec.ErrorDetail != "" {
		_, _ = fmt.Fprintf(w, "error_detail\t%s\n", rec.ErrorDetail)
	}
	_, _ = fmt.Fprintf(w, "created_at\t%s\n", rec.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "updated_at\t%s\n", rec.UpdatedAt.Format(time.RFC3339))

	if len(history) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "AT\tSTATUS\tDETAIL")
		for _, e := range history {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Status, e.Detail)
		}
	}
	return w.Flush()
}
