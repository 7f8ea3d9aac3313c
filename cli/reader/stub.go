package reader

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/pithecene-io/faultline/lode"
	"github.com/pithecene-io/faultline/types"
)

// StubReader serves fixed in-memory events and metrics.
// Used by command tests and the --stub flag.
type StubReader struct {
	events  []*InspectEventResponse
	metrics *MetricsSnapshot
}

// NewStubReader creates a stub reader. Events are listed in the given order.
func NewStubReader(events []*InspectEventResponse, metrics *MetricsSnapshot) *StubReader {
	return &StubReader{events: events, metrics: metrics}
}

// ListEvents implements Reader.
func (r *StubReader) ListEvents(_ context.Context, opts ListOptions) ([]EventListItem, error) {
	items := make([]EventListItem, 0, len(r.events))
	for _, ev := range r.events {
		if !stubMatches(ev, opts) {
			continue
		}
		items = append(items, stubItem(ev))
		if opts.Limit > 0 && len(items) == opts.Limit {
			break
		}
	}
	return items, nil
}

// InspectEvent implements Reader.
func (r *StubReader) InspectEvent(_ context.Context, eventID string) (*InspectEventResponse, error) {
	i := slices.IndexFunc(r.events, func(ev *InspectEventResponse) bool { return ev.EventID == eventID })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", lode.ErrEventNotFound, eventID)
	}
	return r.events[i], nil
}

// StatsEvents implements Reader.
func (r *StubReader) StatsEvents(ctx context.Context, opts ListOptions) (*EventStats, error) {
	opts.Limit = 0
	items, err := r.ListEvents(ctx, opts)
	if err != nil {
		return nil, err
	}
	return Aggregate(items), nil
}

// StatsMetrics implements Reader.
func (r *StubReader) StatsMetrics(_ context.Context, ingestID, source string) (*MetricsSnapshot, error) {
	m := r.metrics
	if m == nil ||
		(ingestID != "" && m.IngestID != ingestID) ||
		(source != "" && m.Source != source) {
		return nil, lode.ErrNoMetricsFound
	}
	return m, nil
}

func stubMatches(ev *InspectEventResponse, opts ListOptions) bool {
	return (opts.Source == "" || ev.Source == opts.Source) &&
		(opts.Level == "" || ev.Level == opts.Level) &&
		(opts.Day == "" || ev.Day == opts.Day)
}

func stubItem(ev *InspectEventResponse) EventListItem {
	item := EventListItem{
		EventID:    ev.EventID,
		Level:      ev.Level,
		Source:     ev.Source,
		Summary:    ev.Summary,
		FrameCount: ev.FrameCount,
	}
	if ev.Event != nil {
		item.Timestamp = ev.Event.Timestamp
	}
	return item
}

// SampleEvents returns a small fixture set for demos and tests.
func SampleEvents() []*InspectEventResponse {
	line, col := 10, 5
	return []*InspectEventResponse{
		{
			EventID: "evt-003", IngestID: "ing-sample", Source: "web", Day: "2026-01-15",
			Level: "error", Summary: "TypeError: x is not a function", FrameCount: 1,
			ContractVersion: types.ContractVersion,
			Event: &types.Event{
				EventID: "evt-003",
				Level:   types.SeverityError,
				Exception: &types.ExceptionValues{Values: []types.Exception{{
					Type:  "TypeError",
					Value: "x is not a function",
					Stacktrace: &types.Stacktrace{Frames: []types.Frame{
						{Filename: "http://a.com/app.js", Function: "handler", Lineno: &line, Colno: &col, InApp: true},
					}},
				}}},
				Timestamp: mustTime("2026-01-15T10:02:00Z"),
			},
		},
		{
			EventID: "evt-002", IngestID: "ing-sample", Source: "web", Day: "2026-01-15",
			Level: "warning", Summary: "slow response", ContractVersion: types.ContractVersion,
			Event: &types.Event{
				EventID: "evt-002", Level: types.SeverityWarning, Message: "slow response",
				Timestamp: mustTime("2026-01-15T10:01:00Z"),
			},
		},
		{
			EventID: "evt-001", IngestID: "ing-sample", Source: "worker", Day: "2026-01-15",
			Level: "error", Summary: "TypeError: y is undefined", ContractVersion: types.ContractVersion,
			Event: &types.Event{
				EventID: "evt-001",
				Level:   types.SeverityError,
				Exception: &types.ExceptionValues{Values: []types.Exception{{
					Type: "TypeError", Value: "y is undefined",
				}}},
				Timestamp: mustTime("2026-01-15T10:00:00Z"),
			},
		},
	}
}

// SampleMetrics returns a fixture metrics record.
func SampleMetrics() *MetricsSnapshot {
	return &MetricsSnapshot{
		Ts:               "2026-01-15T10:05:00Z",
		CapturesReceived: 3,
		ExceptionEvents:  2,
		MessageEvents:    1,
		FramesParsed:     1,
		EventsReceived:   3,
		EventsPersisted:  3,
		LodeWriteSuccess: 2,
		Policy:           "strict",
		StorageBackend:   "fs",
		IngestID:         "ing-sample",
		Source:           "web",
	}
}

var _ Reader = (*StubReader)(nil)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
