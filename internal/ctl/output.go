package ctl

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"
)

var jsonFlag = &cli.BoolFlag{Name: "json", Usage: "print JSON instead of text"}

func printf(c *cli.Command, format string, args ...any) error {
	_, err := fmt.Fprintf(c.Root().Writer, format, args...)
	return err
}

func printJSON(c *cli.Command, v any) error {
	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
