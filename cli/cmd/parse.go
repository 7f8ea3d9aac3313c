package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/render"
)

// ParseCommand returns the parse command.
// It parses raw stack text into frames without building an event.
func ParseCommand() *cli.Command {
	flags := append(ReadOnlyFlags(), ConfigFlag)
	flags = append(flags, builderFlags()[0],
		&cli.IntFlag{Name: "skip-lines", Usage: "Leading stack lines to skip"},
		&cli.IntFlag{Name: "frames-to-pop", Usage: "Frames to remove from the throw site"},
	)
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse a JavaScript stack trace into frames",
		ArgsUsage: "[file|-]",
		Flags:     flags,
		Action:    parseAction,
	}
}

func parseAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for parse command", exitUsage)
	}
	if c.Int("skip-lines") < 0 || c.Int("frames-to-pop") < 0 {
		return cli.Exit("--skip-lines and --frames-to-pop must be >= 0", exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	parser, err := newParser(c, cfg)
	if err != nil {
		return err
	}
	text, err := readInput(c)
	if err != nil {
		return err
	}

	return r.Render(parser.Parse(string(text), c.Int("skip-lines"), c.Int("frames-to-pop")))
}
