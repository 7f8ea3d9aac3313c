package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/reader"
	"github.com/pithecene-io/faultline/cli/render"
	"github.com/pithecene-io/faultline/ipc"
	"github.com/pithecene-io/faultline/types"
)

// DebugCommand returns the debug command with subcommands.
// Debug commands are diagnostic tools and never touch the archive.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools for capture streams",
		Subcommands: []*cli.Command{
			debugFramesCommand(),
			debugEncodeCommand(),
		},
	}
}

func debugFramesCommand() *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "List the frames of a length-prefixed capture stream",
		ArgsUsage: "[file|-]",
		Flags:     ReadOnlyFlags(),
		Action:    debugFramesAction,
	}
}

func debugFramesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", exitUsage)
	}

	in, err := openInput(c)
	if err != nil {
		return err
	}
	defer in.Close()

	infos, err := describeFrames(in)
	if err != nil {
		// Fatal stream errors still render what was read before them.
		if rerr := r.Render(infos); rerr != nil {
			return rerr
		}
		return cli.Exit(err.Error(), exitRuntime)
	}
	return r.Render(infos)
}

// describeFrames reads frames until EOF. Decode errors are recorded per
// frame; partial or oversized frames end the listing with an error.
func describeFrames(r io.Reader) ([]reader.FrameInfo, error) {
	dec := ipc.NewFrameDecoder(r)
	infos := []reader.FrameInfo{}
	for i := 0; ; i++ {
		payload, err := dec.ReadFrame()
		if errors.Is(err, io.EOF) {
			return infos, nil
		}
		if err != nil {
			return infos, fmt.Errorf("frame %d: %w", i, err)
		}

		info := reader.FrameInfo{Index: i, Size: len(payload)}
		frame, err := ipc.DecodeFrame(payload)
		switch f := frame.(type) {
		case *types.CaptureEnvelope:
			info.Type = string(f.Type)
			info.Kind = string(f.Kind)
			info.EventID = f.EventID
		case *types.FlushFrame:
			info.Type = string(f.Type)
		}
		if err != nil {
			info.Type = "invalid"
			info.Error = err.Error()
		}
		infos = append(infos, info)
	}
}

func debugEncodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Encode JSON-lines captures as length-prefixed frames on stdout",
		Description: "Each non-empty line is a capture envelope or a bare thrown value. " +
			"A line of {\"type\":\"flush\"} emits a flush frame.",
		ArgsUsage: "[file|-]",
		Action:    debugEncodeAction,
	}
}

func debugEncodeAction(c *cli.Context) error {
	in, err := openInput(c)
	if err != nil {
		return err
	}
	defer in.Close()

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	n, err := encodeJSONLines(in, out)
	if err != nil {
		return cli.Exit(fmt.Sprintf("line %d: %v", n+1, err), exitUsage)
	}
	return nil
}

// encodeJSONLines writes one frame per JSON line and returns the number
// of lines consumed before any error.
func encodeJSONLines(r io.Reader, w io.Writer) (int, error) {
	enc := ipc.NewFrameEncoder(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), ipc.MaxPayloadSize)

	n := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			n++
			continue
		}
		var frame any
		var probe types.FlushFrame
		if err := json.Unmarshal(line, &probe); err != nil {
			return n, err
		}
		if probe.Type == types.FrameTypeFlush {
			frame = &probe
		} else {
			env, err := decodeCaptureJSON(line)
			if err != nil {
				return n, err
			}
			frame = env
		}
		if err := enc.WriteFrame(frame); err != nil {
			return n, err
		}
		n++
	}
	return n, scanner.Err()
}
