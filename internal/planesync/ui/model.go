package ui

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/petr-muller/planesync/internal/planesync/compare"
	"github.com/petr-muller/planesync/internal/planesync/selection"
)

// Opener opens a URL outside the terminal
type Opener func(url string) error

// BrowserOpener opens the URL with xdg-open
func BrowserOpener(url string) error {
	return exec.Command("xdg-open", url).Start()
}

// openedMsg reports the result of opening an issue
type openedMsg struct {
	url string
	err error
}

var priorityColors = map[string]lipgloss.Color{
	"URGENT": lipgloss.Color("196"),
	"HIGH":   lipgloss.Color("208"),
	"MEDIUM": lipgloss.Color("46"),
	"LOW":    lipgloss.Color("33"),
}

// Model previews the notification that would be sent
type Model struct {
	table   table.Model
	payload selection.Payload
	added   sets.Set[string]
	removed int
	open    Opener
	status  string
	width   int
}

// NewModel creates a preview of payload. previous holds the issue ids of the
// last notification so that new entries can be marked.
func NewModel(payload selection.Payload, previous []string, open Opener) Model {
	if open == nil {
		open = BrowserOpener
	}
	diff := compare.IssueIDs(previous, payload.IssueIDs())

	t := table.New(
		table.WithColumns(columns(0)),
		table.WithFocused(true),
		table.WithHeight(max(len(payload.Entries), 1)+1),
	)
	s := table.DefaultStyles()
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("240")).
		Bold(true)
	t.SetStyles(s)

	m := Model{
		table:   t,
		payload: payload,
		added:   sets.New[string](diff.Added...),
		removed: len(diff.Removed),
		open:    open,
	}
	m.table.SetRows(m.rows())
	return m
}

func columns(width int) []table.Column {
	titleWidth := 40
	// #, priority, state and new marker columns plus cell padding
	if fixed := 4 + 10 + 16 + 5 + 10; width > fixed+titleWidth {
		titleWidth = width - fixed
	}
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Priority", Width: 10},
		{Title: "State", Width: 16},
		{Title: "Title", Width: titleWidth},
		{Title: "New", Width: 5},
	}
}

func (m Model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.payload.Entries))
	for i, entry := range m.payload.Entries {
		marker := ""
		if m.added.Has(entry.IssueID) {
			marker = "*"
		}
		rows = append(rows, table.Row{fmt.Sprintf("#%d", i+1), entry.Priority, entry.State, entry.Title, marker})
	}
	return rows
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetColumns(columns(msg.Width))
	case openedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed to open %s: %v", msg.url, msg.err)
		} else {
			m.status = fmt.Sprintf("Opened %s", msg.url)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m, m.openSelected()
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) openSelected() tea.Cmd {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.payload.Entries) {
		return nil
	}
	url := m.payload.Entries[cursor].URL
	open := m.open
	return func() tea.Msg {
		return openedMsg{url: url, err: open(url)}
	}
}

// View renders the model
func (m Model) View() string {
	var s strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)
	s.WriteString(headerStyle.Render("🎯 " + m.payload.Title))
	s.WriteString("\n")

	if len(m.payload.Entries) == 0 {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("No open issues would be notified"))
		s.WriteString("\n")
	} else {
		summaryStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
		s.WriteString(summaryStyle.Render(fmt.Sprintf("Changes since last notification: %d new, %d gone", m.added.Len(), m.removed)))
		s.WriteString("\n")
		s.WriteString(m.table.View())
		s.WriteString("\n")

		cursor := m.table.Cursor()
		if cursor >= 0 && cursor < len(m.payload.Entries) {
			entry := m.payload.Entries[cursor]
			style := lipgloss.NewStyle().Bold(true)
			if color, ok := priorityColors[entry.Priority]; ok {
				style = style.Foreground(color)
			}
			s.WriteString(style.Render(fmt.Sprintf("[%s]", entry.Priority)))
			s.WriteString(" ")
			s.WriteString(entry.URL)
			s.WriteString("\n")
		}
	}

	if m.status != "" {
		s.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Render(m.status))
		s.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginTop(1)
	s.WriteString(helpStyle.Render("Press 'enter' to open the issue, 'q' to quit, arrow keys to navigate"))

	return s.String()
}
