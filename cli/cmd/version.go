package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/render"
	"github.com/pithecene-io/faultline/stack"
	"github.com/pithecene-io/faultline/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version         string   `json:"version"`
	Commit          string   `json:"commit"`
	ContractVersion string   `json:"contract_version"`
	Parsers         []string `json:"parsers"`
}

// VersionCommand returns the version command.
// It must not touch storage or adapters.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}

		// TUI not supported for version command
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", exitUsage)
		}

		resp := VersionResponse{
			Version:         types.Version,
			Commit:          commit,
			ContractVersion: types.ContractVersion,
			Parsers:         stack.New(stack.AllParsers()...).Names(),
		}

		return r.Render(resp)
	}
}
