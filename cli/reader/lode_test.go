package reader

import (
	"errors"
	"testing"
	"time"

	lodestore "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/faultline/lode"
	"github.com/pithecene-io/faultline/metrics"
	"github.com/pithecene-io/faultline/types"
)

func seededReader(t *testing.T) *LodeReader {
	t.Helper()
	store := lodestore.NewMemory()
	factory := func() (lodestore.Store, error) { return store, nil }

	client, err := lode.NewLodeClientWithFactory(lode.Config{Source: "web", IngestID: "ing-1"}, factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory: %v", err)
	}
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	events := []*types.Event{
		{EventID: "e1", Level: types.SeverityError, Timestamp: base,
			Exception: &types.ExceptionValues{Values: []types.Exception{{Type: "TypeError", Value: "a"}}}},
		{EventID: "e2", Level: types.SeverityError, Timestamp: base.Add(time.Minute),
			Exception: &types.ExceptionValues{Values: []types.Exception{{Type: "TypeError", Value: "b"}}}},
		{EventID: "e3", Level: types.SeverityWarning, Timestamp: base.Add(2 * time.Minute), Message: "slow"},
	}
	if err := client.WriteEvents(t.Context(), events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	collector := metrics.NewCollector("strict", "fs", "", "ing-1", "web")
	collector.IncCaptureReceived()
	if err := client.WriteMetrics(t.Context(), collector.Snapshot(), base.Add(time.Hour)); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}

	ds, err := lode.NewReadDataset("", factory)
	if err != nil {
		t.Fatalf("NewReadDataset: %v", err)
	}
	return NewLodeReader(ds)
}

func TestLodeReader_ListEvents(t *testing.T) {
	r := seededReader(t)

	items, err := r.ListEvents(t.Context(), ListOptions{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}

	errs, err := r.ListEvents(t.Context(), ListOptions{Level: "error"})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(errs) != 2 {
		t.Errorf("len(error items) = %d, want 2", len(errs))
	}
	for _, it := range errs {
		if it.Level != "error" {
			t.Errorf("item %s level = %q, want error", it.EventID, it.Level)
		}
	}

	limited, err := r.ListEvents(t.Context(), ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func TestLodeReader_InspectEvent(t *testing.T) {
	r := seededReader(t)

	resp, err := r.InspectEvent(t.Context(), "e2")
	if err != nil {
		t.Fatalf("InspectEvent: %v", err)
	}
	if resp.Summary != "TypeError: b" {
		t.Errorf("Summary = %q, want TypeError: b", resp.Summary)
	}
	if resp.Event == nil || resp.Event.EventID != "e2" {
		t.Errorf("Event = %+v", resp.Event)
	}
	if resp.IngestID != "ing-1" || resp.Day != "2026-01-15" {
		t.Errorf("IngestID/Day = %q/%q", resp.IngestID, resp.Day)
	}

	if _, err := r.InspectEvent(t.Context(), "missing"); !errors.Is(err, lode.ErrEventNotFound) {
		t.Errorf("InspectEvent(missing) error = %v, want ErrEventNotFound", err)
	}
}

func TestLodeReader_StatsEvents(t *testing.T) {
	r := seededReader(t)

	stats, err := r.StatsEvents(t.Context(), ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("StatsEvents: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3 (limit ignored)", stats.Total)
	}
	if stats.ByLevel["error"] != 2 || stats.ByLevel["warning"] != 1 {
		t.Errorf("ByLevel = %v", stats.ByLevel)
	}
	if len(stats.TopTypes) == 0 || stats.TopTypes[0].Name != "TypeError" || stats.TopTypes[0].Count != 2 {
		t.Errorf("TopTypes = %v, want TypeError first with 2", stats.TopTypes)
	}
}

func TestLodeReader_StatsMetrics(t *testing.T) {
	r := seededReader(t)

	snap, err := r.StatsMetrics(t.Context(), "ing-1", "")
	if err != nil {
		t.Fatalf("StatsMetrics: %v", err)
	}
	if snap.CapturesReceived != 1 {
		t.Errorf("CapturesReceived = %d, want 1", snap.CapturesReceived)
	}
	if snap.Policy != "strict" {
		t.Errorf("Policy = %q, want strict", snap.Policy)
	}

	if _, err := r.StatsMetrics(t.Context(), "other", ""); !errors.Is(err, lode.ErrNoMetricsFound) {
		t.Errorf("StatsMetrics(other) error = %v, want ErrNoMetricsFound", err)
	}
}

func TestAggregate(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []EventListItem{
		{Level: "error", Source: "web", Summary: "RangeError: bad", Timestamp: base.Add(time.Hour)},
		{Level: "error", Source: "web", Summary: "TypeError: a", Timestamp: base},
		{Level: "error", Source: "api", Summary: "TypeError: b", Timestamp: base.Add(2 * time.Hour)},
		{Level: "info", Source: "api", Summary: "hello", Timestamp: base.Add(30 * time.Minute)},
	}

	stats := Aggregate(items)
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.BySource["web"] != 2 || stats.BySource["api"] != 2 {
		t.Errorf("BySource = %v", stats.BySource)
	}
	want := []TypeCount{{"TypeError", 2}, {"RangeError", 1}, {"hello", 1}}
	if len(stats.TopTypes) != len(want) {
		t.Fatalf("TopTypes = %v, want %v", stats.TopTypes, want)
	}
	for i := range want {
		if stats.TopTypes[i] != want[i] {
			t.Errorf("TopTypes[%d] = %v, want %v", i, stats.TopTypes[i], want[i])
		}
	}
	if !stats.First.Equal(base) || !stats.Last.Equal(base.Add(2*time.Hour)) {
		t.Errorf("First/Last = %v/%v", stats.First, stats.Last)
	}
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil)
	if stats.Total != 0 || stats.First != nil || stats.Last != nil {
		t.Errorf("Aggregate(nil) = %+v", stats)
	}
	if stats.TopTypes == nil {
		t.Error("TopTypes should be empty, not nil")
	}
}
