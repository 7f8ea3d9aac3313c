package lode

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// ErrNoMetricsFound is returned when no metrics records exist in the dataset.
var ErrNoMetricsFound = errors.New("no metrics records found")

// ErrEventNotFound is returned when no event matches the requested ID.
var ErrEventNotFound = errors.New("event not found")

// EventFilter narrows QueryEvents. Empty fields match everything.
type EventFilter struct {
	Source string
	Level  string
	Day    string
	// Limit caps the number of returned events. Zero means no limit.
	Limit int
}

func (f EventFilter) matches(rec *EventRecord) bool {
	if f.Source != "" && rec.Source != f.Source {
		return false
	}
	if f.Level != "" && rec.Level != f.Level {
		return false
	}
	if f.Day != "" && rec.Day != f.Day {
		return false
	}
	return true
}

// QueryEvents returns stored events matching filter, newest snapshot first.
// Events appearing in several snapshots are returned once.
func QueryEvents(ctx context.Context, ds lode.Dataset, filter EventFilter) ([]*EventRecord, error) {
	var out []*EventRecord
	err := scanEvents(ctx, ds, filter, func(rec *EventRecord) bool {
		out = append(out, rec)
		return filter.Limit <= 0 || len(out) < filter.Limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryEvent returns the stored event with the given ID.
func QueryEvent(ctx context.Context, ds lode.Dataset, eventID string) (*EventRecord, error) {
	var found *EventRecord
	err := scanEvents(ctx, ds, EventFilter{}, func(rec *EventRecord) bool {
		if rec.EventID == eventID {
			found = rec
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	return found, nil
}

// scanEvents visits event records newest first until visit returns false.
func scanEvents(ctx context.Context, ds lode.Dataset, filter EventFilter, visit func(*EventRecord) bool) error {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return WrapReadError(err, "snapshots")
	}

	seen := make(map[string]bool)
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]

		// Manifest paths are a coarse pre-filter; record fields are authoritative.
		if !hasEventPartition(snap) ||
			!snapshotMatchesFilter(snap, "source", filter.Source) ||
			!snapshotMatchesFilter(snap, "level", filter.Level) ||
			!snapshotMatchesFilter(snap, "day", filter.Day) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
		}

		for j := len(data) - 1; j >= 0; j-- {
			record, ok := data[j].(map[string]any)
			if !ok || record["record_kind"] != RecordKindEvent {
				continue
			}
			id := toString(record["event_id"])
			if seen[id] {
				continue
			}
			rec, err := fromEventRecordMap(record)
			if err != nil {
				return WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
			}
			if !filter.matches(rec) {
				continue
			}
			seen[id] = true
			if !visit(rec) {
				return nil
			}
		}
	}
	return nil
}

// QueryLatestMetrics finds the most recent metrics record.
// Filters by ingestID and source if non-empty.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, ingestID, source string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "snapshots")
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]

		if !isMetricsSnapshot(snap) || !snapshotMatchesFilter(snap, "source", source) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
		}

		for j := len(data) - 1; j >= 0; j-- {
			record, ok := data[j].(map[string]any)
			if !ok {
				continue
			}
			if record["record_kind"] != RecordKindMetrics {
				continue
			}
			if ingestID != "" && toString(record["ingest_id"]) != ingestID {
				continue
			}
			if source != "" && toString(record["source"]) != source {
				continue
			}
			return record, nil
		}
	}

	return nil, ErrNoMetricsFound
}
