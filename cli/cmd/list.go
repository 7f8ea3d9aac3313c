package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/reader"
	"github.com/pithecene-io/faultline/cli/render"
)

// listWarningThreshold is the number of items above which we warn about using --limit.
const listWarningThreshold = 100

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// listFilterFlags returns the event filter flags shared by list and stats.
func listFilterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "source", Usage: "Filter by source partition"},
		&cli.StringFlag{Name: "level", Usage: "Filter by level: fatal, error, warning, log, info, debug"},
		&cli.StringFlag{Name: "day", Usage: "Filter by day partition (YYYY-MM-DD)"},
	}
}

// ListCommand returns the list command.
// List returns thin rows; use inspect for the full event.
func ListCommand() *cli.Command {
	flags := append(ReaderFlags(), listFilterFlags()...)
	return &cli.Command{
		Name:  "list",
		Usage: "List archived events, newest first",
		Flags: append(flags,
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of events to return (0 = no limit)",
				Value: 0,
			},
		),
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	// TUI not supported for list
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list command", exitUsage)
	}

	opts := listOptions(c)
	opts.Limit = c.Int("limit")
	if opts.Limit < 0 {
		return cli.Exit("--limit must be >= 0", exitUsage)
	}

	rd, err := newReader(c)
	if err != nil {
		return err
	}
	results, err := rd.ListEvents(c.Context, opts)
	if err != nil {
		return readError(err)
	}

	// Warn if output is large and --limit was not specified (TTY only to avoid noise in pipelines)
	if len(results) > listWarningThreshold && opts.Limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(results))
	}

	return r.Render(results)
}

func listOptions(c *cli.Context) reader.ListOptions {
	return reader.ListOptions{
		Source: c.String("source"),
		Level:  c.String("level"),
		Day:    c.String("day"),
	}
}
