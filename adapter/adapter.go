// Package adapter defines the notification adapter boundary.
//
// Adapters publish a notification for every ingested event to a
// downstream system. The ingestion engine owns adapter lifecycle; users
// provide configuration only.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/faultline/types"
)

// EventTypeIngested is the event_type of every notification.
const EventTypeIngested = "event.ingested"

// Notification is the payload published when an event is ingested.
type Notification struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "event.ingested"
	EventID         string `json:"event_id"`
	IngestID        string `json:"ingest_id,omitempty"`
	Source          string `json:"source"`
	Level           string `json:"level"`
	ExceptionType   string `json:"exception_type,omitempty"`
	ExceptionValue  string `json:"exception_value,omitempty"`
	Message         string `json:"message,omitempty"`
	FrameCount      int    `json:"frame_count"`
	Synthetic       bool   `json:"synthetic,omitempty"`
	Timestamp       string `json:"timestamp"` // ISO 8601
}

// NewNotification summarizes an event for publication.
func NewNotification(event *types.Event, meta types.IngestMeta) *Notification {
	n := &Notification{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypeIngested,
		EventID:         event.EventID,
		IngestID:        meta.IngestID,
		Source:          meta.Source,
		Level:           string(event.Level),
		Timestamp:       event.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if exc := event.PrimaryException(); exc != nil {
		n.ExceptionType = exc.Type
		n.ExceptionValue = exc.Value
		n.FrameCount = exc.FrameCount()
		if exc.Mechanism != nil && exc.Mechanism.Synthetic != nil {
			n.Synthetic = *exc.Mechanism.Synthetic
		}
	} else {
		n.Message = event.Summary()
	}
	return n
}

// Adapter publishes notifications to a downstream system.
type Adapter interface {
	// Publish sends a notification to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, n *Notification) error

	// Close releases adapter resources.
	Close() error
}

// RetryDelay is the backoff before retry attempt i (i >= 1):
// 500ms, 1s, 2s, ...
func RetryDelay(i int) time.Duration {
	return time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
}

// Sleep waits d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
