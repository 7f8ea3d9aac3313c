// Package reader provides the read-side data access layer for the CLI.
//
// Commands read archived events and session metrics only through this
// package; they never touch the ingestion packages directly.
package reader

import (
	"time"

	"github.com/pithecene-io/faultline/types"
)

// EventListItem is one row of `faultline list`.
type EventListItem struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	Level      string    `json:"level"`
	Source     string    `json:"source"`
	Summary    string    `json:"summary"`
	FrameCount int       `json:"frame_count"`
}

// InspectEventResponse is the detail view of one event.
type InspectEventResponse struct {
	EventID         string       `json:"event_id"`
	IngestID        string       `json:"ingest_id"`
	Source          string       `json:"source"`
	Day             string       `json:"day"`
	Level           string       `json:"level"`
	Summary         string       `json:"summary"`
	FrameCount      int          `json:"frame_count"`
	ContractVersion string       `json:"contract_version"`
	Event           *types.Event `json:"event"`
}

// TypeCount counts events sharing an exception type or message.
type TypeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// EventStats aggregates the events matching a filter.
type EventStats struct {
	Total    int            `json:"total"`
	ByLevel  map[string]int `json:"by_level"`
	BySource map[string]int `json:"by_source"`
	TopTypes []TypeCount    `json:"top_types"`
	First    *time.Time     `json:"first,omitempty"`
	Last     *time.Time     `json:"last,omitempty"`
}

// MetricsSnapshot is a stored session metrics record.
type MetricsSnapshot struct {
	Ts string `json:"ts"`

	// Capture path
	CapturesReceived int64 `json:"captures_received"`
	ExceptionEvents  int64 `json:"exception_events"`
	MessageEvents    int64 `json:"message_events"`
	SyntheticEvents  int64 `json:"synthetic_events"`
	FramesParsed     int64 `json:"frames_parsed"`
	IPCDecodeErrors  int64 `json:"ipc_decode_errors"`

	// Policy
	EventsReceived  int64            `json:"events_received"`
	EventsPersisted int64            `json:"events_persisted"`
	EventsDropped   int64            `json:"events_dropped"`
	DroppedByLevel  map[string]int64 `json:"dropped_by_level,omitempty"`

	// Lode / Storage
	LodeWriteSuccess int64 `json:"lode_write_success"`
	LodeWriteFailure int64 `json:"lode_write_failure"`

	// Notifications
	PublishSuccess int64 `json:"publish_success"`
	PublishFailure int64 `json:"publish_failure"`

	// Dimensions
	Policy         string `json:"policy"`
	StorageBackend string `json:"storage_backend"`
	Adapter        string `json:"adapter,omitempty"`
	IngestID       string `json:"ingest_id"`
	Source         string `json:"source"`
}

// ListOptions filters list and stats queries.
type ListOptions struct {
	Source string
	Level  string
	Day    string
	Limit  int
}

// FrameInfo describes one frame of a capture stream (debug frames).
type FrameInfo struct {
	Index   int    `json:"index"`
	Size    int    `json:"size"`
	Type    string `json:"type"`
	Kind    string `json:"kind,omitempty"`
	EventID string `json:"event_id,omitempty"`
	Error   string `json:"error,omitempty"`
}
