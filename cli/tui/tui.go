package tui

import (
	"fmt"
	"slices"
	"strings"
)

// View types with an interactive rendering.
const (
	ViewInspectEvent = "inspect_event"
	ViewStatsEvents  = "stats_events"
	ViewStatsMetrics = "stats_metrics"
)

// Run starts the TUI for viewType.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	if strings.HasPrefix(viewType, "inspect_") {
		return RunInspectTUI(viewType, data)
	}
	return RunStatsTUI(viewType, data)
}

// IsTUISupported returns true if the view type supports TUI mode.
// Only read-only inspect and stats views do.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{
		ViewInspectEvent,
		ViewStatsEvents,
		ViewStatsMetrics,
	}
}
