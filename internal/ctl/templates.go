package ctl

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifyhub/internal/templates"
)

func templatesCommand(b Backend) *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "Manage notification templates",
		Commands: []*cli.Command{
			{
				Name:      "seed",
				Usage:     "Upsert templates from a YAML fixture",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.NArg() < 1 {
						return fmt.Errorf("usage: notifyctl templates seed <file>")
					}
					tpls, err := templates.ReadFixtureFile(c.Args().First())
					if err != nil {
						return err
					}

					store, err := b.Templates(ctx)
					if err != nil {
						return err
					}
					for _, t := range tpls {
						if err := store.Put(ctx, t); err != nil {
							return fmt.Errorf("put template %q v%d: %w", t.Code, t.Version, err)
						}
					}
					return printf(c, "seeded %d template(s)\n", len(tpls))
				},
			},
		},
	}
}
