package reader

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	lodestore "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/faultline/lode"
)

// topTypesLimit bounds EventStats.TopTypes.
const topTypesLimit = 10

// LodeReader reads events and metrics from a Lode dataset.
type LodeReader struct {
	ds lodestore.Dataset
}

// NewLodeReader creates a reader over ds.
func NewLodeReader(ds lodestore.Dataset) *LodeReader {
	return &LodeReader{ds: ds}
}

// ListEvents implements Reader.
func (r *LodeReader) ListEvents(ctx context.Context, opts ListOptions) ([]EventListItem, error) {
	records, err := lode.QueryEvents(ctx, r.ds, toFilter(opts))
	if err != nil {
		return nil, err
	}
	items := make([]EventListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, listItem(rec))
	}
	return items, nil
}

// InspectEvent implements Reader.
func (r *LodeReader) InspectEvent(ctx context.Context, eventID string) (*InspectEventResponse, error) {
	rec, err := lode.QueryEvent(ctx, r.ds, eventID)
	if err != nil {
		return nil, err
	}
	return &InspectEventResponse{
		EventID:         rec.EventID,
		IngestID:        rec.IngestID,
		Source:          rec.Source,
		Day:             rec.Day,
		Level:           rec.Level,
		Summary:         rec.Summary,
		FrameCount:      rec.FrameCount,
		ContractVersion: rec.ContractVersion,
		Event:           rec.Event,
	}, nil
}

// StatsEvents implements Reader.
func (r *LodeReader) StatsEvents(ctx context.Context, opts ListOptions) (*EventStats, error) {
	filter := toFilter(opts)
	filter.Limit = 0
	records, err := lode.QueryEvents(ctx, r.ds, filter)
	if err != nil {
		return nil, err
	}
	items := make([]EventListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, listItem(rec))
	}
	return Aggregate(items), nil
}

// StatsMetrics implements Reader.
func (r *LodeReader) StatsMetrics(ctx context.Context, ingestID, source string) (*MetricsSnapshot, error) {
	record, err := lode.QueryLatestMetrics(ctx, r.ds, ingestID, source)
	if err != nil {
		return nil, err
	}
	return ParseMetricsRecord(record)
}

// Aggregate computes event statistics from list rows.
func Aggregate(items []EventListItem) *EventStats {
	stats := &EventStats{
		ByLevel:  make(map[string]int),
		BySource: make(map[string]int),
		TopTypes: []TypeCount{},
	}
	byType := make(map[string]int)
	for _, it := range items {
		stats.Total++
		stats.ByLevel[it.Level]++
		stats.BySource[it.Source]++
		byType[typeKey(it.Summary)]++

		ts := it.Timestamp
		if stats.First == nil || ts.Before(*stats.First) {
			stats.First = &ts
		}
		if stats.Last == nil || ts.After(*stats.Last) {
			stats.Last = &ts
		}
	}

	for name, n := range byType {
		stats.TopTypes = append(stats.TopTypes, TypeCount{Name: name, Count: n})
	}
	slices.SortFunc(stats.TopTypes, func(a, b TypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(stats.TopTypes) > topTypesLimit {
		stats.TopTypes = stats.TopTypes[:topTypesLimit]
	}
	return stats
}

// typeKey groups summaries by the text before the first ": ".
func typeKey(summary string) string {
	if name, _, ok := strings.Cut(summary, ": "); ok {
		return name
	}
	return summary
}

func toFilter(opts ListOptions) lode.EventFilter {
	return lode.EventFilter{
		Source: opts.Source,
		Level:  opts.Level,
		Day:    opts.Day,
		Limit:  opts.Limit,
	}
}

func listItem(rec *lode.EventRecord) EventListItem {
	ts, _ := time.Parse(time.RFC3339Nano, rec.Timestamp)
	return EventListItem{
		EventID:    rec.EventID,
		Timestamp:  ts,
		Level:      rec.Level,
		Source:     rec.Source,
		Summary:    rec.Summary,
		FrameCount: rec.FrameCount,
	}
}

var _ Reader = (*LodeReader)(nil)
