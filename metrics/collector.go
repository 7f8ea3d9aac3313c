// Package metrics provides per-session ingestion counters.
//
// The Collector accumulates counters during a single ingestion session. It
// is a leaf package with no internal dependencies. Policy counters are
// absorbed from policy.Stats when the session ends rather than recorded
// live, so they are never double-counted.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Capture path
	CapturesReceived int64
	ExceptionEvents  int64
	MessageEvents    int64
	SyntheticEvents  int64
	FramesParsed     int64
	IPCDecodeErrors  int64

	// Policy (absorbed from policy.Stats at session end)
	EventsReceived  int64
	EventsPersisted int64
	EventsDropped   int64
	DroppedByLevel  map[string]int64

	// Lode / Storage
	LodeWriteSuccess int64
	LodeWriteFailure int64

	// Notifications
	PublishSuccess int64
	PublishFailure int64

	// Dimensions (informational, set at construction)
	Policy         string
	StorageBackend string
	Adapter        string
	IngestID       string
	Source         string
}

// Collector accumulates metrics during a single ingestion session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	capturesReceived int64
	exceptionEvents  int64
	messageEvents    int64
	syntheticEvents  int64
	framesParsed     int64
	ipcDecodeErrors  int64

	lodeWriteSuccess int64
	lodeWriteFailure int64

	publishSuccess int64
	publishFailure int64

	// Set once via AbsorbPolicyStats
	eventsReceived  int64
	eventsPersisted int64
	eventsDropped   int64
	droppedByLevel  map[string]int64

	policy         string
	storageBackend string
	adapter        string
	ingestID       string
	source         string
}

// NewCollector creates a Collector with dimension labels.
// adapter may be empty when no notification adapter is configured.
func NewCollector(policy, storageBackend, adapter, ingestID, source string) *Collector {
	return &Collector{
		droppedByLevel: make(map[string]int64),
		policy:         policy,
		storageBackend: storageBackend,
		adapter:        adapter,
		ingestID:       ingestID,
		source:         source,
	}
}

// add applies fn under the lock. Nil-receiver safe.
func (c *Collector) add(fn func()) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}

// --- Capture path ---

// IncCaptureReceived records a decoded capture frame.
func (c *Collector) IncCaptureReceived() {
	c.add(func() { c.capturesReceived++ })
}

// IncExceptionEvent records an event carrying an exception.
func (c *Collector) IncExceptionEvent() {
	c.add(func() { c.exceptionEvents++ })
}

// IncMessageEvent records an event carrying a message.
func (c *Collector) IncMessageEvent() {
	c.add(func() { c.messageEvents++ })
}

// IncSyntheticEvent records an event built from a non-error capture.
func (c *Collector) IncSyntheticEvent() {
	c.add(func() { c.syntheticEvents++ })
}

// AddFramesParsed records stack frames attached to an event.
func (c *Collector) AddFramesParsed(n int) {
	c.add(func() { c.framesParsed += int64(n) })
}

// IncIPCDecodeErrors records a frame that could not be decoded.
func (c *Collector) IncIPCDecodeErrors() {
	c.add(func() { c.ipcDecodeErrors++ })
}

// --- Lode / Storage ---
// Lode counters are per-call, not per-record. A WriteEvents call with N
// events counts as one success.

// IncLodeWriteSuccess records a successful Lode write operation (per-call).
func (c *Collector) IncLodeWriteSuccess() {
	c.add(func() { c.lodeWriteSuccess++ })
}

// IncLodeWriteFailure records a failed Lode write operation (per-call).
func (c *Collector) IncLodeWriteFailure() {
	c.add(func() { c.lodeWriteFailure++ })
}

// --- Notifications ---

// IncPublishSuccess records a delivered notification.
func (c *Collector) IncPublishSuccess() {
	c.add(func() { c.publishSuccess++ })
}

// IncPublishFailure records a notification that failed after retries.
func (c *Collector) IncPublishFailure() {
	c.add(func() { c.publishFailure++ })
}

// --- Policy (absorbed) ---

// AbsorbPolicyStats copies policy counters into the collector.
// Called once at session end with the final policy stats snapshot.
// Level keys are strings to keep this package free of the types package.
func (c *Collector) AbsorbPolicyStats(totalEvents, persisted, dropped int64, droppedByLevel map[string]int64) {
	c.add(func() {
		c.eventsReceived = totalEvents
		c.eventsPersisted = persisted
		c.eventsDropped = dropped
		c.droppedByLevel = make(map[string]int64, len(droppedByLevel))
		for k, v := range droppedByLevel {
			c.droppedByLevel[k] = v
		}
	})
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := make(map[string]int64, len(c.droppedByLevel))
	for k, v := range c.droppedByLevel {
		dropped[k] = v
	}

	return Snapshot{
		CapturesReceived: c.capturesReceived,
		ExceptionEvents:  c.exceptionEvents,
		MessageEvents:    c.messageEvents,
		SyntheticEvents:  c.syntheticEvents,
		FramesParsed:     c.framesParsed,
		IPCDecodeErrors:  c.ipcDecodeErrors,

		EventsReceived:  c.eventsReceived,
		EventsPersisted: c.eventsPersisted,
		EventsDropped:   c.eventsDropped,
		DroppedByLevel:  dropped,

		LodeWriteSuccess: c.lodeWriteSuccess,
		LodeWriteFailure: c.lodeWriteFailure,

		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		Policy:         c.policy,
		StorageBackend: c.storageBackend,
		Adapter:        c.adapter,
		IngestID:       c.ingestID,
		Source:         c.source,
	}
}
