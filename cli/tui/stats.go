package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/faultline/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewStatsEvents:
		content = m.renderStatsEvents()
	case ViewStatsMetrics:
		content = m.renderStatsMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsEvents() string {
	data, ok := m.data.(*reader.EventStats)
	if !ok {
		return "Invalid data type for stats_events"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Event Statistics"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Total", int64(data.Total), highlightColor),
		m.renderStatBox("Fatal", int64(data.ByLevel["fatal"]), errorColor),
		m.renderStatBox("Error", int64(data.ByLevel["error"]), errorColor),
		m.renderStatBox("Warning", int64(data.ByLevel["warning"]), warningColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	if len(data.BySource) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("By Source"))
		b.WriteString("\n")
		sources := make([]string, 0, len(data.BySource))
		for s := range data.BySource {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		for _, s := range sources {
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render(s+":"),
				ValueStyle.Render(fmt.Sprintf("%d", data.BySource[s]))))
		}
	}

	if len(data.TopTypes) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Top Types"))
		b.WriteString("\n")
		for _, tc := range data.TopTypes {
			b.WriteString(fmt.Sprintf("%6d  %s\n", tc.Count, ValueStyle.Render(tc.Name)))
		}
	}

	return b.String()
}

func (m StatsModel) renderStatsMetrics() string {
	data, ok := m.data.(*reader.MetricsSnapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Ingest Metrics"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Ingest ID:"), ValueStyle.Render(data.IngestID)))
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Source:"), ValueStyle.Render(data.Source)))
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Policy:"), ValueStyle.Render(data.Policy)))
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Completed:"), ValueStyle.Render(data.Ts)))
	b.WriteString("\n")

	capture := []string{
		m.renderStatBox("Captures", data.CapturesReceived, highlightColor),
		m.renderStatBox("Exceptions", data.ExceptionEvents, errorColor),
		m.renderStatBox("Messages", data.MessageEvents, successColor),
		m.renderStatBox("Decode Errors", data.IPCDecodeErrors, warningColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, capture...))
	b.WriteString("\n")

	delivery := []string{
		m.renderStatBox("Persisted", data.EventsPersisted, successColor),
		m.renderStatBox("Dropped", data.EventsDropped, warningColor),
		m.renderStatBox("Write Failures", data.LodeWriteFailure, errorColor),
		m.renderStatBox("Publish Failures", data.PublishFailure, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, delivery...))

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without the interactive program.
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
