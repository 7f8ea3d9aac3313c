package reader

import "errors"

// ParseMetricsRecord converts a Lode record (map[string]any) to a MetricsSnapshot.
// Handles both int64 (direct writes) and float64 (JSON round-trips) for numeric fields.
func ParseMetricsRecord(record map[string]any) (*MetricsSnapshot, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	snap := &MetricsSnapshot{
		Ts: toString(record["ts"]),

		CapturesReceived: toInt64(record["captures_received_total"]),
		ExceptionEvents:  toInt64(record["exception_events_total"]),
		MessageEvents:    toInt64(record["message_events_total"]),
		SyntheticEvents:  toInt64(record["synthetic_events_total"]),
		FramesParsed:     toInt64(record["frames_parsed_total"]),
		IPCDecodeErrors:  toInt64(record["ipc_decode_errors_total"]),

		EventsReceived:  toInt64(record["events_received_total"]),
		EventsPersisted: toInt64(record["events_persisted_total"]),
		EventsDropped:   toInt64(record["events_dropped_total"]),

		LodeWriteSuccess: toInt64(record["lode_write_success_total"]),
		LodeWriteFailure: toInt64(record["lode_write_failure_total"]),

		PublishSuccess: toInt64(record["publish_success_total"]),
		PublishFailure: toInt64(record["publish_failure_total"]),

		Policy:         toString(record["policy"]),
		StorageBackend: toString(record["storage_backend"]),
		Adapter:        toString(record["adapter"]),
		IngestID:       toString(record["ingest_id"]),
		Source:         toString(record["source"]),
	}

	if dbl, ok := record["dropped_by_level"]; ok && dbl != nil {
		snap.DroppedByLevel = parseDroppedByLevel(dbl)
	}

	// The write path always populates these; a missing value means a
	// malformed record.
	if snap.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if snap.IngestID == "" {
		return nil, errors.New("metrics record missing required field: ingest_id")
	}
	if snap.Policy == "" {
		return nil, errors.New("metrics record missing required field: policy")
	}
	if snap.StorageBackend == "" {
		return nil, errors.New("metrics record missing required field: storage_backend")
	}

	return snap, nil
}

// toInt64 converts a value to int64, handling float64 from JSON and int64 from direct writes.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// parseDroppedByLevel handles map[string]int64 (direct) and map[string]any (JSON round-trip).
func parseDroppedByLevel(v any) map[string]int64 {
	switch m := v.(type) {
	case map[string]int64:
		return m
	case map[string]any:
		result := make(map[string]int64, len(m))
		for k, val := range m {
			result[k] = toInt64(val)
		}
		return result
	default:
		return nil
	}
}
