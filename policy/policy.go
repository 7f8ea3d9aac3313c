// Package policy defines how built events reach persistence.
package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/faultline/types"
)

// Policy defines the ingestion policy interface.
// Policies control buffering, dropping, and persistence behavior.
//
// Rules:
//   - May drop: message events at debug, info or log level
//   - Must NOT drop: exception events and messages at warning or above
//   - Policy must not alter events
//   - Policy failure stops ingestion
type Policy interface {
	// IngestEvent handles a built event.
	// Returns an error only when a non-droppable event cannot be accepted.
	IngestEvent(ctx context.Context, event *types.Event) error

	// Flush flushes any buffered events.
	// Called on flush frames and at end of stream.
	Flush(ctx context.Context) error

	// Close cleans up policy resources.
	Close() error

	// Stats returns an atomic snapshot of policy counters.
	Stats() Stats
}

// Stats represents policy observability metrics.
type Stats struct {
	// TotalEvents is the total number of events received.
	TotalEvents int64
	// EventsPersisted is the number of events persisted.
	EventsPersisted int64
	// EventsDropped is the total number of events dropped.
	EventsDropped int64
	// DroppedByLevel maps severity levels to drop counts.
	DroppedByLevel map[types.Severity]int64
	// BufferSize is the current buffer size in bytes (if buffered).
	BufferSize int64
	// FlushCount is the number of flush operations.
	FlushCount int64
	// Errors is the count of non-fatal errors encountered.
	Errors int64
}

// droppableLevels are the levels at which message events may be dropped.
var droppableLevels = map[types.Severity]bool{
	types.SeverityDebug: true,
	types.SeverityInfo:  true,
	types.SeverityLog:   true,
}

// IsDroppable returns true if the event may be dropped by policy.
// Events carrying an exception are never droppable.
func IsDroppable(event *types.Event) bool {
	return event.IsMessage() && droppableLevels[event.Level]
}

// DroppableLevels returns the set of levels at which messages may be dropped.
func DroppableLevels() map[types.Severity]bool {
	result := make(map[types.Severity]bool, len(droppableLevels))
	for k, v := range droppableLevels {
		result[k] = v
	}
	return result
}

// DroppedByLevelStrings converts drop counts to string keys for packages
// that do not depend on types.
func (s Stats) DroppedByLevelStrings() map[string]int64 {
	out := make(map[string]int64, len(s.DroppedByLevel))
	for k, v := range s.DroppedByLevel {
		out[string(k)] = v
	}
	return out
}

// statsRecorder is an internal helper for thread-safe stats management.
//
// Lock discipline:
//   - StrictPolicy and NoopPolicy use the locking methods
//   - BufferedPolicy uses the Locked methods only while holding
//     BufferedPolicy.mu, keeping buffer state and counters consistent
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{
		stats: Stats{
			DroppedByLevel: make(map[types.Severity]int64),
		},
	}
}

func (r *statsRecorder) incTotalEvents() {
	r.mu.Lock()
	r.stats.TotalEvents++
	r.mu.Unlock()
}

func (r *statsRecorder) incEventsPersisted(n int64) {
	r.mu.Lock()
	r.stats.EventsPersisted += n
	r.mu.Unlock()
}

func (r *statsRecorder) incEventsDropped(level types.Severity) {
	r.mu.Lock()
	r.stats.EventsDropped++
	r.stats.DroppedByLevel[level]++
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) incFlush() {
	r.mu.Lock()
	r.stats.FlushCount++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(r.stats.BufferSize)
}

// --- Locked methods for BufferedPolicy ---
// Caller must hold BufferedPolicy.mu.

func (r *statsRecorder) incTotalEventsLocked() {
	r.stats.TotalEvents++
}

func (r *statsRecorder) incEventsPersistedLocked(n int64) {
	r.stats.EventsPersisted += n
}

func (r *statsRecorder) incEventsDroppedLocked(level types.Severity) {
	r.stats.EventsDropped++
	r.stats.DroppedByLevel[level]++
}

func (r *statsRecorder) incErrorsLocked() {
	r.stats.Errors++
}

func (r *statsRecorder) incFlushLocked() {
	r.stats.FlushCount++
}

func (r *statsRecorder) setBufferSizeLocked(bytes int64) {
	r.stats.BufferSize = bytes
}

// snapshotLocked returns a copy of stats with the given bufferSize.
func (r *statsRecorder) snapshotLocked(bufferSize int64) Stats {
	s := r.stats
	s.BufferSize = bufferSize
	s.DroppedByLevel = make(map[types.Severity]int64, len(r.stats.DroppedByLevel))
	for k, v := range r.stats.DroppedByLevel {
		s.DroppedByLevel[k] = v
	}
	return s
}
