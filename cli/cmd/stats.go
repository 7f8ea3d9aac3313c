package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/render"
	"github.com/pithecene-io/faultline/cli/tui"
)

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated, derived facts.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics (events, metrics)",
		Subcommands: []*cli.Command{
			statsEventsCommand(),
			statsMetricsCommand(),
		},
	}
}

func statsEventsCommand() *cli.Command {
	return &cli.Command{
		Name:   "events",
		Usage:  "Count archived events by level, source and type",
		Flags:  append(ReaderFlags(), listFilterFlags()...),
		Action: statsEventsAction,
	}
}

func statsEventsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	rd, err := newReader(c)
	if err != nil {
		return err
	}
	stats, err := rd.StatsEvents(c.Context, listOptions(c))
	if err != nil {
		return readError(err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsEvents, stats)
	}
	return r.Render(stats)
}

func statsMetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Show the latest ingest session metrics",
		Flags: append(ReaderFlags(),
			&cli.StringFlag{Name: "ingest-id", Usage: "Read metrics for a specific ingest session"},
			&cli.StringFlag{Name: "source", Usage: "Filter by source partition"},
		),
		Action: statsMetricsAction,
	}
}

func statsMetricsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	rd, err := newReader(c)
	if err != nil {
		return err
	}
	snapshot, err := rd.StatsMetrics(c.Context, c.String("ingest-id"), c.String("source"))
	if err != nil {
		return readError(err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsMetrics, snapshot)
	}
	return r.Render(snapshot)
}
