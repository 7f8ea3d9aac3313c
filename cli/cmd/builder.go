package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/config"
	"github.com/pithecene-io/faultline/eventbuilder"
	"github.com/pithecene-io/faultline/stack"
)

// builderFlags configure stack parsing and structural copies.
func builderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "parsers",
			Usage: "Stack line parsers to enable: chrome, gecko, winjs, opera10, opera11 (default: chrome, gecko)",
		},
		&cli.IntFlag{Name: "depth", Usage: "Depth bound for serialized non-error values (default 3)"},
		&cli.IntFlag{Name: "breadth", Usage: "Entries per container in serialized values (default 1000)"},
		&cli.IntFlag{Name: "max-size", Usage: "Byte bound for serialized values (default 102400)"},
		&cli.BoolFlag{Name: "attach-stacktrace", Usage: "Attach synthetic stacks to message captures"},
	}
}

// newParser resolves the configured stack parsers.
func newParser(c *cli.Context, cfg *config.Config) (*stack.Parser, error) {
	names := resolveStrings(c, "parsers", configVal(cfg, func(c *config.Config) []string { return c.Parsers }))
	lps, err := stack.ParsersByName(names)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	return stack.New(lps...), nil
}

// newBuilder creates an event builder from flags and config.
func newBuilder(c *cli.Context, cfg *config.Config) (*eventbuilder.Builder, error) {
	parser, err := newParser(c, cfg)
	if err != nil {
		return nil, err
	}
	opts := eventbuilder.ClientOptions{
		NormalizeDepth:      resolveInt(c, "depth", configVal(cfg, func(c *config.Config) int { return c.Options.Depth })),
		NormalizeMaxBreadth: resolveInt(c, "breadth", configVal(cfg, func(c *config.Config) int { return c.Options.Breadth })),
		MaxSerializedSize:   resolveInt(c, "max-size", configVal(cfg, func(c *config.Config) int { return c.Options.MaxSize })),
		AttachStacktrace:    resolveBool(c, "attach-stacktrace", configVal(cfg, func(c *config.Config) bool { return c.Options.AttachStacktrace })),
	}
	if opts.NormalizeDepth < 0 || opts.NormalizeMaxBreadth < 0 || opts.MaxSerializedSize < 0 {
		return nil, cli.Exit("--depth, --breadth and --max-size must be >= 0", exitUsage)
	}
	return eventbuilder.New(eventbuilder.StaticOptions(opts), eventbuilder.WithParser(parser)), nil
}

// openInput opens the first argument, or stdin when it is absent or "-".
func openInput(c *cli.Context) (io.ReadCloser, error) {
	path := c.Args().First()
	if path == "" || path == "-" {
		in := c.App.Reader
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("cannot open input: %v", err), exitUsage)
	}
	return f, nil
}

// readInput reads the whole input selected by openInput.
func readInput(c *cli.Context) ([]byte, error) {
	in, err := openInput(c)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("cannot read input: %v", err), exitUsage)
	}
	return data, nil
}
