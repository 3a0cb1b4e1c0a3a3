package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/harvest/internal/task"
)

// Outcome prefixes for the status line.
const (
	PrefixOK   = "✓ "
	PrefixFail = "✗ "
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	matchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle  = lipgloss.NewStyle().Faint(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

type eventMsg struct{ event task.Event }

type eventsClosedMsg struct{}

// Model is the live progress screen. It consumes the controller's event
// stream; every repaint is driven by an event, including the loading
// indicator whose frames advance only on animation ticks. The model keeps
// no timers of its own.
type Model struct {
	table  *TableModel
	events <-chan task.Event

	frames []string
	frame  int

	status    string
	failure   string
	completed *task.CompletedEvent
	quitting  bool
}

// NewModel wraps a table projection and an event stream into a bubbletea
// program model.
func NewModel(table *TableModel, events <-chan task.Event) Model {
	return Model{
		table:  table,
		events: events,
		frames: spinner.Dot.Frames,
		status: "Submitting...",
	}
}

// Completed returns the final artifact event, if the run reached one.
func (m Model) Completed() *task.CompletedEvent {
	return m.completed
}

// Failure returns the failure message, if the run ended in one.
func (m Model) Failure() string {
	return m.failure
}

func (m Model) Init() tea.Cmd {
	return m.waitForEvent
}

func (m Model) waitForEvent() tea.Msg {
	event, ok := <-m.events
	if !ok {
		return eventsClosedMsg{}
	}
	return eventMsg{event: event}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case eventsClosedMsg:
		return m, tea.Quit

	case eventMsg:
		return m.handleEvent(msg.event)
	}
	return m, nil
}

func (m Model) handleEvent(event task.Event) (tea.Model, tea.Cmd) {
	switch event := event.(type) {
	case task.InventoryEvent:
		m.table.Materialize(event.Items)
		m.status = fmt.Sprintf("Processing %d tables...", len(event.Items))

	case task.ProgressEvent:
		m.table.ApplyChanges(event.Changes)
		m.status = progressLine(event.Snapshot)

	case task.AnimTickEvent:
		m.frame = (m.frame + 1) % len(m.frames)

	case task.CompletedEvent:
		if event.Message != "" {
			m.status = PrefixOK + event.Message
		} else {
			m.table.Finalize(event.Table)
			m.status = PrefixOK + fmt.Sprintf("Extraction complete: %d rows", len(event.Table.Rows))
		}
		m.completed = &event
		return m, tea.Quit

	case task.FailedEvent:
		m.failure = event.Message
		m.status = PrefixFail + event.Message
		return m, tea.Quit

	case task.ClearedEvent:
		m.status = ""
		return m, tea.Quit
	}
	return m, m.waitForEvent
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if rows := m.table.Rows(); len(rows) > 0 {
		b.WriteString(m.renderRows(rows))
		b.WriteString("\n")
	}

	switch {
	case m.failure != "":
		b.WriteString(failStyle.Render(m.status))
	case strings.HasPrefix(m.status, PrefixOK):
		b.WriteString(okStyle.Render(m.status))
	case m.status != "":
		b.WriteString(spinnerStyle.Render(m.frames[m.frame]) + " " + statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderRows(rows []*RowState) string {
	header := m.table.Header()
	widths := make([]int, len(header))
	for i, col := range header {
		widths[i] = len([]rune(col))
	}

	cells := make([][]string, len(rows))
	for r, row := range rows {
		line := make([]string, 0, len(header))
		line = append(line, row.Fixed...)
		for _, cell := range row.Cells {
			if cell.Loading {
				line = append(line, m.frames[m.frame])
			} else {
				line = append(line, cell.Text)
			}
		}
		for len(line) < len(header) {
			line = append(line, "")
		}
		cells[r] = line
		for i, v := range line {
			if n := len([]rune(v)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	for i, col := range header {
		b.WriteString(headerStyle.Render(pad(col, widths[i])))
		if i < len(header)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")
	for _, line := range cells {
		for i, v := range line {
			b.WriteString(styleCell(v, widths[i]))
			if i < len(line)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func styleCell(v string, width int) string {
	padded := pad(v, width)
	switch v {
	case BadgeMatch:
		return matchStyle.Render(padded)
	case BadgeMiss:
		return missStyle.Render(padded)
	default:
		return padded
	}
}

func pad(s string, width int) string {
	if n := width - len([]rune(s)); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// progressLine formats a snapshot into the single status line shown under
// the table while polling.
func progressLine(snap task.Snapshot) string {
	var parts []string
	if snap.CurrentAction != "" {
		parts = append(parts, snap.CurrentAction)
	} else if snap.Message != "" {
		parts = append(parts, snap.Message)
	}
	if snap.Counts.TotalTables > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d tables", snap.Counts.ProcessedTables, snap.Counts.TotalTables))
	}
	if snap.Percentage > 0 {
		parts = append(parts, fmt.Sprintf("%.0f%%", snap.Percentage))
	}
	if len(parts) == 0 {
		return "Working..."
	}
	return strings.Join(parts, " · ")
}
