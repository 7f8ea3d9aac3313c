// Package render provides output rendering for the faultline CLI.
//
// Format selection:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format always overrides the default
//   - Invalid formats are errors
//
// --no-color affects table output only. The TUI uses its own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/faultline/cli/reader"
	"github.com/pithecene-io/faultline/cli/tui"
	"github.com/pithecene-io/faultline/types"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// timeLayout is used for timestamps in table output.
const timeLayout = "2006-01-02 15:04:05"

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	if format == "" {
		if f, ok := out.(*os.File); ok && isTTY(f) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     out,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI runs the interactive view for viewType.
// The TUI is read-only and uses the same payloads as Render.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch d := data.(type) {
	case []reader.EventListItem:
		r.eventListTable(w, d)
	case *reader.InspectEventResponse:
		r.inspectEventTable(w, d)
	case *reader.EventStats:
		r.eventStatsTable(w, d)
	case *reader.MetricsSnapshot:
		r.metricsTable(w, d)
	case *types.Event:
		r.eventTable(w, d)
	case []types.Frame:
		r.framesTable(w, d)
	default:
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			r.sliceTable(w, v)
		} else {
			r.structTable(w, data)
		}
	}
	return nil
}

func (r *Renderer) eventListTable(w io.Writer, items []reader.EventListItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "(no results)")
		return
	}
	fmt.Fprintln(w, "EVENT ID\tTIMESTAMP\tLEVEL\tSOURCE\tFRAMES\tSUMMARY")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			it.EventID, formatTime(it.Timestamp), r.level(it.Level), it.Source, it.FrameCount, truncate(it.Summary, 80))
	}
}

func (r *Renderer) inspectEventTable(w io.Writer, resp *reader.InspectEventResponse) {
	fmt.Fprintf(w, "event_id:\t%s\n", resp.EventID)
	fmt.Fprintf(w, "ingest_id:\t%s\n", resp.IngestID)
	fmt.Fprintf(w, "source:\t%s\n", resp.Source)
	fmt.Fprintf(w, "day:\t%s\n", resp.Day)
	fmt.Fprintf(w, "level:\t%s\n", r.level(resp.Level))
	fmt.Fprintf(w, "summary:\t%s\n", resp.Summary)
	fmt.Fprintf(w, "contract_version:\t%s\n", resp.ContractVersion)
	if resp.Event != nil {
		r.eventDetail(w, resp.Event)
	}
}

func (r *Renderer) eventTable(w io.Writer, ev *types.Event) {
	fmt.Fprintf(w, "event_id:\t%s\n", ev.EventID)
	fmt.Fprintf(w, "level:\t%s\n", r.level(string(ev.Level)))
	fmt.Fprintf(w, "timestamp:\t%s\n", formatTime(ev.Timestamp))
	fmt.Fprintf(w, "summary:\t%s\n", ev.Summary())
	r.eventDetail(w, ev)
}

// eventDetail writes mechanism, tags, extra keys and frames.
func (r *Renderer) eventDetail(w io.Writer, ev *types.Event) {
	if ex := ev.PrimaryException(); ex != nil && ex.Mechanism != nil {
		fmt.Fprintf(w, "mechanism:\t%s\n", describeMechanism(ex.Mechanism))
	}
	if ev.LogEntry != nil && len(ev.LogEntry.Params) > 0 {
		fmt.Fprintf(w, "params:\t%v\n", ev.LogEntry.Params)
	}
	for _, k := range sortedKeys(ev.Tags) {
		fmt.Fprintf(w, "tag %s:\t%s\n", k, ev.Tags[k])
	}
	for _, k := range sortedKeys(ev.Extra) {
		fmt.Fprintf(w, "extra %s:\t%s\n", k, compactJSON(ev.Extra[k]))
	}
	if ex := ev.PrimaryException(); ex != nil && ex.FrameCount() > 0 {
		fmt.Fprintln(w)
		r.framesTable(w, ex.Stacktrace.Frames)
	}
}

func (r *Renderer) framesTable(w io.Writer, frames []types.Frame) {
	if len(frames) == 0 {
		fmt.Fprintln(w, "(no frames)")
		return
	}
	fmt.Fprintln(w, "#\tFUNCTION\tFILENAME\tLINE\tCOL")
	// Frames are stored caller first; print throw site first.
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			len(frames)-1-i, f.Function, f.Filename, optInt(f.Lineno), optInt(f.Colno))
	}
}

func (r *Renderer) eventStatsTable(w io.Writer, s *reader.EventStats) {
	fmt.Fprintf(w, "total:\t%d\n", s.Total)
	if s.First != nil {
		fmt.Fprintf(w, "first:\t%s\n", formatTime(*s.First))
	}
	if s.Last != nil {
		fmt.Fprintf(w, "last:\t%s\n", formatTime(*s.Last))
	}
	for _, k := range sortedKeys(s.ByLevel) {
		fmt.Fprintf(w, "level %s:\t%d\n", r.level(k), s.ByLevel[k])
	}
	for _, k := range sortedKeys(s.BySource) {
		fmt.Fprintf(w, "source %s:\t%d\n", k, s.BySource[k])
	}
	if len(s.TopTypes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "TYPE\tCOUNT")
		for _, tc := range s.TopTypes {
			fmt.Fprintf(w, "%s\t%d\n", tc.Name, tc.Count)
		}
	}
}

func (r *Renderer) metricsTable(w io.Writer, m *reader.MetricsSnapshot) {
	rows := []struct {
		label string
		value any
	}{
		{"ts", m.Ts},
		{"ingest_id", m.IngestID},
		{"source", m.Source},
		{"policy", m.Policy},
		{"storage_backend", m.StorageBackend},
		{"adapter", m.Adapter},
		{"captures_received", m.CapturesReceived},
		{"exception_events", m.ExceptionEvents},
		{"message_events", m.MessageEvents},
		{"synthetic_events", m.SyntheticEvents},
		{"frames_parsed", m.FramesParsed},
		{"ipc_decode_errors", m.IPCDecodeErrors},
		{"events_received", m.EventsReceived},
		{"events_persisted", m.EventsPersisted},
		{"events_dropped", m.EventsDropped},
		{"lode_write_success", m.LodeWriteSuccess},
		{"lode_write_failure", m.LodeWriteFailure},
		{"publish_success", m.PublishSuccess},
		{"publish_failure", m.PublishFailure},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s:\t%v\n", row.label, row.value)
	}
	for _, k := range sortedKeys(m.DroppedByLevel) {
		fmt.Fprintf(w, "dropped %s:\t%d\n", k, m.DroppedByLevel[k])
	}
}

func (r *Renderer) sliceTable(w io.Writer, v reflect.Value) {
	if v.Len() == 0 {
		fmt.Fprintln(w, "(no results)")
		return
	}
	first := indirect(v.Index(0))
	if first.Kind() != reflect.Struct {
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(w, formatValue(v.Index(i)))
		}
		return
	}

	t := first.Type()
	headers := make([]string, t.NumField())
	for i := range headers {
		headers[i] = fieldName(t.Field(i))
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for i := 0; i < v.Len(); i++ {
		row := indirect(v.Index(i))
		values := make([]string, row.NumField())
		for j := range values {
			values[j] = formatValue(row.Field(j))
		}
		fmt.Fprintln(w, strings.Join(values, "\t"))
	}
}

func (r *Renderer) structTable(w io.Writer, data any) {
	v := indirect(reflect.ValueOf(data))
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			fmt.Fprintf(w, "%s:\t%s\n", fieldName(t.Field(i)), formatValue(v.Field(i)))
		}
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		values := make(map[string]string, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := fmt.Sprintf("%v", iter.Key().Interface())
			keys = append(keys, k)
			values[k] = formatValue(iter.Value())
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s:\t%s\n", k, values[k])
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}
}

// level colors a level name unless color is disabled.
func (r *Renderer) level(level string) string {
	if r.noColor {
		return level
	}
	return LevelStyle(level).Render(level)
}

// LevelStyle returns the table style for an event level.
func LevelStyle(level string) lipgloss.Style {
	switch level {
	case "fatal", "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	case "warning":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	case "debug":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	default:
		return lipgloss.NewStyle()
	}
}

func describeMechanism(m *types.Mechanism) string {
	parts := []string{m.Type}
	if m.Handled != nil {
		parts = append(parts, "handled="+strconv.FormatBool(*m.Handled))
	}
	if m.Synthetic != nil && *m.Synthetic {
		parts = append(parts, "synthetic")
	}
	return strings.Join(parts, " ")
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return formatTime(t)
		}
		return "{...}"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return truncate(string(data), 120)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isTTY returns true if the file is a terminal.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
