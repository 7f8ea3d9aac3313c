package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/pithecene-io/faultline/log"
	"github.com/pithecene-io/faultline/types"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferEvents is the maximum number of events to buffer.
	// Zero means no limit (use MaxBufferBytes instead).
	MaxBufferEvents int

	// MaxBufferBytes is the maximum buffer size in bytes (estimated).
	// Zero means no limit (use MaxBufferEvents instead).
	// At least one limit must be set.
	MaxBufferBytes int64

	// Logger is an optional logger for policy observability.
	// If nil, no logging is emitted.
	Logger *log.Logger
}

// DefaultBufferedConfig returns sensible defaults for buffered policy.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferEvents: 1000,
		MaxBufferBytes:  10 * 1024 * 1024, // 10 MB
	}
}

// ErrBufferFull is returned when the buffer is full and the event is non-droppable.
var ErrBufferFull = errors.New("buffer full: cannot accept non-droppable event")

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: at least one of MaxBufferEvents or MaxBufferBytes must be set")

// BufferedPolicy implements buffered persistence with drop rules.
//
//   - Bounded buffer with explicit limits
//   - A full buffer is flushed before anything is dropped
//   - May drop: debug, info and log message events
//   - Flush failures keep the buffer (at-least-once)
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	// flushMu serializes flushes so a batch is never written twice concurrently.
	flushMu sync.Mutex

	mu          sync.Mutex // guards buffer state only
	buffer      []*types.Event
	bufferBytes int64
	stats       *statsRecorder
}

// NewBufferedPolicy creates a new buffered policy.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferEvents <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}

	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		buffer: make([]*types.Event, 0, min(max(config.MaxBufferEvents, 100), 10000)),
		stats:  newStatsRecorder(),
	}, nil
}

// IngestEvent buffers the event.
//
// When the buffer is full it is flushed first. If the flush fails:
//   - a droppable incoming event is dropped
//   - a non-droppable event evicts the oldest droppable event
//   - with nothing to evict, ErrBufferFull is returned
//
// An empty buffer always accepts the event. One larger than MaxBufferBytes
// is flushed at once; on failure it stays buffered for the next flush.
func (p *BufferedPolicy) IngestEvent(ctx context.Context, event *types.Event) error {
	eventSize := estimateEventSize(event)

	p.mu.Lock()
	p.stats.incTotalEventsLocked()
	if p.hasRoomForEvent(eventSize) {
		p.appendEvent(event, eventSize)
		p.mu.Unlock()
		p.flushIfOverLimit(ctx)
		return nil
	}
	p.mu.Unlock()

	flushErr := p.Flush(ctx)

	p.mu.Lock()
	if p.hasRoomForEvent(eventSize) {
		p.appendEvent(event, eventSize)
		p.mu.Unlock()
		p.flushIfOverLimit(ctx)
		return nil
	}
	defer p.mu.Unlock()

	if IsDroppable(event) {
		p.stats.incEventsDroppedLocked(event.Level)
		p.logDrop(event, "buffer_full")
		return nil
	}

	if p.dropOldestDroppable() && p.hasRoomForEvent(eventSize) {
		p.appendEvent(event, eventSize)
		return nil
	}

	p.stats.incErrorsLocked()
	p.logBufferOverflow(event, flushErr)
	return ErrBufferFull
}

// appendEvent adds an event to the buffer. Caller must hold mu.
func (p *BufferedPolicy) appendEvent(event *types.Event, eventSize int64) {
	p.buffer = append(p.buffer, event)
	p.bufferBytes += eventSize
	p.stats.setBufferSizeLocked(p.bufferBytes)
}

// Flush writes all buffered events to the sink in one batch.
// On failure the batch stays buffered, so a retry may write duplicates.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	p.stats.incFlushLocked()
	events := make([]*types.Event, len(p.buffer))
	copy(events, p.buffer)
	p.mu.Unlock()

	if len(events) == 0 {
		return nil
	}

	if err := p.sink.WriteEvents(ctx, events); err != nil {
		p.mu.Lock()
		p.stats.incErrorsLocked()
		p.mu.Unlock()
		p.logFlushFailure(len(events), err)
		return err
	}

	p.mu.Lock()
	p.stats.incEventsPersistedLocked(int64(len(events)))
	p.removeFlushed(events)
	p.mu.Unlock()

	return nil
}

// removeFlushed drops the written events from the buffer, keeping any
// events appended while the flush was in progress. Caller must hold mu.
func (p *BufferedPolicy) removeFlushed(flushed []*types.Event) {
	written := make(map[*types.Event]bool, len(flushed))
	for _, e := range flushed {
		written[e] = true
	}
	remaining := make([]*types.Event, 0, cap(p.buffer))
	for _, e := range p.buffer {
		if !written[e] {
			remaining = append(remaining, e)
		}
	}
	p.buffer = remaining
	p.recalculateBufferBytes()
}

// recalculateBufferBytes recalculates bufferBytes from the buffer. Caller must hold mu.
func (p *BufferedPolicy) recalculateBufferBytes() {
	var total int64
	for _, event := range p.buffer {
		total += estimateEventSize(event)
	}
	p.bufferBytes = total
	p.stats.setBufferSizeLocked(p.bufferBytes)
}

// Close flushes remaining events and closes the sink.
func (p *BufferedPolicy) Close() error {
	// Best-effort flush on close
	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns an atomic snapshot of policy statistics.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats.snapshotLocked(p.bufferBytes)
}

// hasRoomForEvent checks if the buffer can accept an event of the given size.
func (p *BufferedPolicy) hasRoomForEvent(eventSize int64) bool {
	if len(p.buffer) == 0 {
		return true
	}
	if p.config.MaxBufferEvents > 0 && len(p.buffer) >= p.config.MaxBufferEvents {
		return false
	}
	if p.config.MaxBufferBytes > 0 && p.bufferBytes+eventSize > p.config.MaxBufferBytes {
		return false
	}
	return true
}

// flushIfOverLimit flushes when the buffer exceeds MaxBufferBytes, which
// only happens after an oversized event was admitted to an empty buffer.
// A failed flush leaves the event buffered.
func (p *BufferedPolicy) flushIfOverLimit(ctx context.Context) {
	p.mu.Lock()
	over := p.config.MaxBufferBytes > 0 && p.bufferBytes > p.config.MaxBufferBytes
	p.mu.Unlock()
	if over {
		_ = p.Flush(ctx)
	}
}

// dropOldestDroppable removes the oldest droppable event from the buffer.
// Returns false if no droppable events exist. Caller must hold mu.
func (p *BufferedPolicy) dropOldestDroppable() bool {
	for i, event := range p.buffer {
		if !IsDroppable(event) {
			continue
		}
		p.buffer = append(p.buffer[:i], p.buffer[i+1:]...)
		p.bufferBytes -= estimateEventSize(event)
		p.stats.setBufferSizeLocked(p.bufferBytes)
		p.stats.incEventsDroppedLocked(event.Level)
		p.logDrop(event, "evicted_for_non_droppable")
		return true
	}
	return false
}

// estimateEventSize returns a rough size in bytes for buffer accounting.
func estimateEventSize(event *types.Event) int64 {
	size := int64(200)
	size += int64(len(event.Message))
	if event.LogEntry != nil {
		size += int64(len(event.LogEntry.Message) + len(event.LogEntry.Params)*32)
	}
	if exc := event.PrimaryException(); exc != nil {
		size += int64(len(exc.Type) + len(exc.Value))
		if exc.Stacktrace != nil {
			for _, f := range exc.Stacktrace.Frames {
				size += int64(64 + len(f.Filename) + len(f.Function))
			}
		}
	}
	size += int64(len(event.Extra) * 50)
	size += int64(len(event.Tags) * 32)
	return size
}

// --- Logging helpers ---

func (p *BufferedPolicy) logDrop(event *types.Event, reason string) {
	if p.logger == nil {
		return
	}
	p.logger.Warn("event dropped", map[string]any{
		"event_id": event.EventID,
		"level":    string(event.Level),
		"reason":   reason,
		"policy":   "buffered",
	})
}

func (p *BufferedPolicy) logBufferOverflow(event *types.Event, flushErr error) {
	if p.logger == nil {
		return
	}
	fields := map[string]any{
		"event_id": event.EventID,
		"level":    string(event.Level),
		"policy":   "buffered",
	}
	if flushErr != nil {
		fields["flush_error"] = flushErr.Error()
	}
	p.logger.Error("buffer overflow", fields)
}

func (p *BufferedPolicy) logFlushFailure(count int, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("flush failed", map[string]any{
		"events": count,
		"error":  err.Error(),
		"policy": "buffered",
	})
}
