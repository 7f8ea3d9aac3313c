package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/faultline/cli/reader"
	"github.com/pithecene-io/faultline/types"
)

// headerHeight is the number of rows kept above the frames viewport.
const headerHeight = 14

// InspectModel is a Bubble Tea model for inspect views.
// The event header is fixed; the stack trace scrolls in a viewport.
type InspectModel struct {
	viewType string
	data     any
	frames   viewport.Model
	ready    bool
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.frames, cmd = m.frames.Update(msg)
	return m, cmd
}

// resize fits the frames viewport to the window.
func (m *InspectModel) resize() {
	h := max(m.height-headerHeight, 3)
	if !m.ready {
		m.frames = viewport.New(m.width, h)
		m.ready = true
	} else {
		m.frames.Width = m.width
		m.frames.Height = h
	}
	if resp, ok := m.data.(*reader.InspectEventResponse); ok {
		m.frames.SetContent(renderFrames(resp.Event))
	}
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectEvent:
		content = m.renderInspectEvent()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ scroll frames • q quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectEvent() string {
	data, ok := m.data.(*reader.InspectEventResponse)
	if !ok {
		return "Invalid data type for inspect_event"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Event Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Event ID", data.EventID},
		{"Level", data.Level},
		{"Summary", data.Summary},
		{"Source", data.Source},
		{"Ingest ID", data.IngestID},
		{"Day", data.Day},
		{"Frames", strconv.Itoa(data.FrameCount)},
	}
	if ev := data.Event; ev != nil {
		if !ev.Timestamp.IsZero() {
			rows = append(rows, []string{"Timestamp", ev.Timestamp.Format("2006-01-02 15:04:05")})
		}
		if ex := ev.PrimaryException(); ex != nil && ex.Mechanism != nil {
			rows = append(rows, []string{"Mechanism", mechanismLabel(ex.Mechanism)})
		}
		tagKeys := make([]string, 0, len(ev.Tags))
		for k := range ev.Tags {
			tagKeys = append(tagKeys, k)
		}
		sort.Strings(tagKeys)
		for _, k := range tagKeys {
			rows = append(rows, []string{k, ev.Tags[k]})
		}
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := row[1]
		if row[0] == "Level" {
			value = LevelStyle(data.Level).Render(value)
		} else {
			value = ValueStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	header := BoxStyle.Render(b.String())
	if !m.ready {
		return header + "\n" + renderFrames(data.Event)
	}
	return header + "\n" + m.frames.View()
}

// renderFrames lists frames throw site first.
func renderFrames(ev *types.Event) string {
	ex := ev.PrimaryException()
	if ex == nil || ex.FrameCount() == 0 {
		return HelpStyle.MarginTop(0).Render("(no stack trace)")
	}

	frames := ex.Stacktrace.Frames
	var b strings.Builder
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		loc := f.Filename
		if f.Lineno != nil {
			loc += ":" + strconv.Itoa(*f.Lineno)
			if f.Colno != nil {
				loc += ":" + strconv.Itoa(*f.Colno)
			}
		}
		b.WriteString(fmt.Sprintf("  at %s %s\n",
			FrameFunctionStyle.Render(f.Function),
			lipgloss.NewStyle().Foreground(mutedColor).Render("("+loc+")")))
	}
	return b.String()
}

func mechanismLabel(mech *types.Mechanism) string {
	label := mech.Type
	if mech.Handled != nil && !*mech.Handled {
		label += " (unhandled)"
	}
	if mech.Synthetic != nil && *mech.Synthetic {
		label += " (synthetic)"
	}
	return label
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without the interactive program.
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
