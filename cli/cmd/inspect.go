package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/render"
	"github.com/pithecene-io/faultline/cli/tui"
)

// InspectCommand returns the inspect command.
// Inspect returns the full stored event, stack trace included.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect an archived event by ID",
		ArgsUsage: "<event-id>",
		Flags:     ReaderFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("event-id required", exitUsage)
	}
	eventID := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	rd, err := newReader(c)
	if err != nil {
		return err
	}
	resp, err := rd.InspectEvent(c.Context, eventID)
	if err != nil {
		return readError(err)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectEvent, resp)
	}
	return r.Render(resp)
}
