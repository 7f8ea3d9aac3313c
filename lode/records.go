package lode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pithecene-io/faultline/metrics"
	"github.com/pithecene-io/faultline/types"
)

// RecordKind discriminator values.
const (
	RecordKindEvent   = "event"
	RecordKindMetrics = "metrics"
)

// MetricsLevel is the level partition value used for metrics records.
const MetricsLevel = "_metrics"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"source", "day", "level"}

// EventRecord is the storage format for an ingested event.
// Includes the record_kind discriminator and partition keys.
type EventRecord struct {
	RecordKind      string       `json:"record_kind"`
	ContractVersion string       `json:"contract_version"`
	EventID         string       `json:"event_id"`
	IngestID        string       `json:"ingest_id"`
	Summary         string       `json:"summary"`
	FrameCount      int          `json:"frame_count"`
	Timestamp       string       `json:"timestamp"`
	Event           *types.Event `json:"event"`

	// Partition keys (used by Lode HiveLayout)
	Source string `json:"source"`
	Day    string `json:"day"`
	Level  string `json:"level"`
}

// DeriveDay computes the partition day from a timestamp.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// toEventRecordMap converts an event to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toEventRecordMap(e *types.Event, cfg Config) (map[string]any, error) {
	event, err := toMap(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.EventID, err)
	}

	frames := 0
	if exc := e.PrimaryException(); exc != nil {
		frames = exc.FrameCount()
	}

	return map[string]any{
		"record_kind":      RecordKindEvent,
		"contract_version": types.ContractVersion,
		"event_id":         e.EventID,
		"ingest_id":        cfg.IngestID,
		"summary":          e.Summary(),
		"frame_count":      frames,
		"timestamp":        e.Timestamp.UTC().Format(time.RFC3339Nano),
		"event":            event,
		"source":           cfg.Source,
		"day":              DeriveDay(e.Timestamp),
		"level":            levelPartition(e.Level),
	}, nil
}

// toMetricsRecordMap converts a metrics snapshot to a map for Lode storage.
func toMetricsRecordMap(s metrics.Snapshot, completedAt time.Time, cfg Config) map[string]any {
	dropped := make(map[string]any, len(s.DroppedByLevel))
	for k, v := range s.DroppedByLevel {
		dropped[k] = v
	}
	return map[string]any{
		"record_kind":      RecordKindMetrics,
		"contract_version": types.ContractVersion,
		"ts":               completedAt.UTC().Format(time.RFC3339Nano),

		"captures_received_total":  s.CapturesReceived,
		"exception_events_total":   s.ExceptionEvents,
		"message_events_total":     s.MessageEvents,
		"synthetic_events_total":   s.SyntheticEvents,
		"frames_parsed_total":      s.FramesParsed,
		"ipc_decode_errors_total":  s.IPCDecodeErrors,
		"events_received_total":    s.EventsReceived,
		"events_persisted_total":   s.EventsPersisted,
		"events_dropped_total":     s.EventsDropped,
		"dropped_by_level":         dropped,
		"lode_write_success_total": s.LodeWriteSuccess,
		"lode_write_failure_total": s.LodeWriteFailure,
		"publish_success_total":    s.PublishSuccess,
		"publish_failure_total":    s.PublishFailure,

		"policy":          s.Policy,
		"storage_backend": s.StorageBackend,
		"adapter":         s.Adapter,
		"ingest_id":       firstNonEmpty(s.IngestID, cfg.IngestID),
		"source":          firstNonEmpty(s.Source, cfg.Source),
		"day":             DeriveDay(completedAt),
		"level":           MetricsLevel,
	}
}

// fromEventRecordMap decodes a stored event record.
func fromEventRecordMap(m map[string]any) (*EventRecord, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var rec EventRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Event == nil {
		return nil, fmt.Errorf("event record %s has no event body", rec.EventID)
	}
	return &rec, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func levelPartition(level types.Severity) string {
	if level == "" {
		return string(types.SeverityError)
	}
	return string(level)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
