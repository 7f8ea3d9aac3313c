package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/config"
	"github.com/pithecene-io/faultline/cli/render"
	"github.com/pithecene-io/faultline/ingest"
	"github.com/pithecene-io/faultline/policy"
	"github.com/pithecene-io/faultline/types"
)

// EventCommand returns the event command.
// It builds one event from a JSON capture without touching storage.
func EventCommand() *cli.Command {
	flags := append(ReadOnlyFlags(), ConfigFlag)
	flags = append(flags, builderFlags()...)
	return &cli.Command{
		Name:  "event",
		Usage: "Build an event from a JSON capture envelope or thrown value",
		Description: "The input is either a capture envelope ({\"type\":\"capture\",\"kind\":...}) " +
			"or a bare thrown value ({\"kind\":\"error\",...}), which is captured as an exception.",
		ArgsUsage: "[file|-]",
		Flags: append(flags,
			&cli.StringFlag{Name: "source", Usage: "Source recorded in tags when the capture names another"},
			&cli.StringFlag{Name: "release", Usage: "Release tag"},
		),
		Action: eventAction,
	}
}

func eventAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for event command", exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	builder, err := newBuilder(c, cfg)
	if err != nil {
		return err
	}
	data, err := readInput(c)
	if err != nil {
		return err
	}
	env, err := decodeCaptureJSON(data)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid capture: %v", err), exitUsage)
	}

	meta := types.IngestMeta{
		Source: resolveString(c, "source", configVal(cfg, func(c *config.Config) string { return c.Source })),
	}
	if release := resolveString(c, "release", configVal(cfg, func(c *config.Config) string { return c.Release })); release != "" {
		meta.Release = &release
	}

	engine := ingest.NewEngine(bytes.NewReader(nil), ingest.EngineConfig{
		Builder: builder,
		Policy:  policy.NewNoopPolicy(),
		Meta:    meta,
	})
	return r.Render(engine.BuildEvent(env))
}

// decodeCaptureJSON accepts a capture envelope or a bare thrown value.
func decodeCaptureJSON(data []byte) (*types.CaptureEnvelope, error) {
	var probe struct {
		Type types.FrameType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if probe.Type == types.FrameTypeCapture {
		var env types.CaptureEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		switch env.Kind {
		case types.CaptureException, types.CaptureMessage:
		default:
			return nil, fmt.Errorf("unknown capture kind %q", env.Kind)
		}
		return &env, nil
	}
	if probe.Type != "" {
		return nil, fmt.Errorf("unsupported frame type %q", probe.Type)
	}

	var value types.ThrownValue
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	if value.Kind == "" {
		return nil, fmt.Errorf("thrown value has no kind")
	}
	return &types.CaptureEnvelope{
		Type:  types.FrameTypeCapture,
		Kind:  types.CaptureException,
		Value: &value,
	}, nil
}
