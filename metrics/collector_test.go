package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("strict", "fs", "webhook", "ing-001", "web")

	c.IncCaptureReceived()
	c.IncCaptureReceived()
	c.IncCaptureReceived()
	c.IncExceptionEvent()
	c.IncExceptionEvent()
	c.IncMessageEvent()
	c.IncSyntheticEvent()
	c.AddFramesParsed(7)
	c.AddFramesParsed(3)
	c.IncIPCDecodeErrors()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteFailure()
	c.IncPublishSuccess()
	c.IncPublishFailure()
	c.IncPublishFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"CapturesReceived", s.CapturesReceived, 3},
		{"ExceptionEvents", s.ExceptionEvents, 2},
		{"MessageEvents", s.MessageEvents, 1},
		{"SyntheticEvents", s.SyntheticEvents, 1},
		{"FramesParsed", s.FramesParsed, 10},
		{"IPCDecodeErrors", s.IPCDecodeErrors, 1},
		{"LodeWriteSuccess", s.LodeWriteSuccess, 2},
		{"LodeWriteFailure", s.LodeWriteFailure, 1},
		{"PublishSuccess", s.PublishSuccess, 1},
		{"PublishFailure", s.PublishFailure, 2},
	}
	for _, tc := range checks {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("buffered", "s3", "", "ing-9", "api").Snapshot()

	if s.Policy != "buffered" {
		t.Errorf("Policy = %q, want buffered", s.Policy)
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want s3", s.StorageBackend)
	}
	if s.Adapter != "" {
		t.Errorf("Adapter = %q, want empty", s.Adapter)
	}
	if s.IngestID != "ing-9" {
		t.Errorf("IngestID = %q, want ing-9", s.IngestID)
	}
	if s.Source != "api" {
		t.Errorf("Source = %q, want api", s.Source)
	}
}

func TestCollector_AbsorbPolicyStats(t *testing.T) {
	c := NewCollector("buffered", "fs", "", "ing-1", "web")

	src := map[string]int64{"debug": 3, "info": 1}
	c.AbsorbPolicyStats(10, 6, 4, src)
	src["debug"] = 100

	s := c.Snapshot()
	if s.EventsReceived != 10 {
		t.Errorf("EventsReceived = %d, want 10", s.EventsReceived)
	}
	if s.EventsPersisted != 6 {
		t.Errorf("EventsPersisted = %d, want 6", s.EventsPersisted)
	}
	if s.EventsDropped != 4 {
		t.Errorf("EventsDropped = %d, want 4", s.EventsDropped)
	}
	if s.DroppedByLevel["debug"] != 3 {
		t.Errorf("DroppedByLevel[debug] = %d, want 3 (input map must be copied)", s.DroppedByLevel["debug"])
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("strict", "fs", "", "ing-1", "web")
	c.AbsorbPolicyStats(1, 0, 1, map[string]int64{"log": 1})

	s := c.Snapshot()
	s.DroppedByLevel["log"] = 50
	c.IncCaptureReceived()

	if got := c.Snapshot().DroppedByLevel["log"]; got != 1 {
		t.Errorf("DroppedByLevel[log] = %d after mutating snapshot, want 1", got)
	}
	if s.CapturesReceived != 0 {
		t.Errorf("snapshot changed after collector mutation: CapturesReceived = %d", s.CapturesReceived)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	// None of these may panic.
	c.IncCaptureReceived()
	c.IncExceptionEvent()
	c.IncMessageEvent()
	c.IncSyntheticEvent()
	c.AddFramesParsed(1)
	c.IncIPCDecodeErrors()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteFailure()
	c.IncPublishSuccess()
	c.IncPublishFailure()
	c.AbsorbPolicyStats(1, 1, 0, nil)

	if s := c.Snapshot(); s.CapturesReceived != 0 {
		t.Errorf("nil Snapshot().CapturesReceived = %d, want 0", s.CapturesReceived)
	}
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := NewCollector("strict", "fs", "", "ing-1", "web")

	const goroutines = 8
	const perGoroutine = 250

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				c.IncCaptureReceived()
				c.AddFramesParsed(2)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.CapturesReceived != goroutines*perGoroutine {
		t.Errorf("CapturesReceived = %d, want %d", s.CapturesReceived, goroutines*perGoroutine)
	}
	if s.FramesParsed != 2*goroutines*perGoroutine {
		t.Errorf("FramesParsed = %d, want %d", s.FramesParsed, 2*goroutines*perGoroutine)
	}
}
