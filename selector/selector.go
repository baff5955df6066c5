package selector

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"roleman/catalog"
	"roleman/history"
	"roleman/styles"
)

const defaultListHeight = 12

// Options configures one interactive selection.
type Options struct {
	// Title is rendered above the query input.
	Title string
	// Query pre-fills the input. When it matches exactly one candidate the
	// selection completes without showing the picker at all.
	Query string
	// Mode is config.SortDynamic or config.SortAlphabetical.
	Mode string
	// Stats feeds the dynamic ranking; nil means no history signal.
	Stats map[history.Key]history.Stats
}

// Model is the interactive picker: a query input over a ranked candidate
// list. Enter resolves with the highlighted entry, esc and ctrl+c cancel.
type Model struct {
	entries []catalog.Entry
	opts    Options

	input   textinput.Model
	matches []catalog.Entry
	cursor  int
	height  int

	choice    *catalog.Entry
	cancelled bool
}

// NewModel builds a picker over the given catalog entries.
func NewModel(entries []catalog.Entry, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "account or role"
	input.Prompt = "› "
	input.PromptStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	input.SetValue(opts.Query)
	input.Focus()

	m := Model{
		entries: entries,
		opts:    opts,
		input:   input,
		height:  defaultListHeight,
	}
	m.rerank()
	return m
}

// Choice returns the selected entry, or nil when the picker was cancelled.
func (m Model) Choice() *catalog.Entry { return m.choice }

// Cancelled reports whether the user backed out without selecting.
func (m Model) Cancelled() bool { return m.cancelled }

func (m *Model) rerank() {
	m.matches = Rank(m.entries, m.input.Value(), m.opts.Stats, m.opts.Mode)
	if m.cursor >= len(m.matches) {
		m.cursor = 0
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height - 4
		if m.height < 3 {
			m.height = 3
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			if len(m.matches) > 0 {
				entry := m.matches[m.cursor]
				m.choice = &entry
				return m, tea.Quit
			}
			return m, nil

		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.rerank()
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	if m.opts.Title != "" {
		b.WriteString(styles.TitleStyle.Render(m.opts.Title))
		b.WriteString("\n\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.matches) == 0 {
		b.WriteString(styles.MutedStyle.Render("no matching roles"))
		b.WriteString("\n")
	} else {
		start, end := listWindow(m.cursor, len(m.matches), m.height)
		for i := start; i < end; i++ {
			entry := m.matches[i]
			line := fmt.Sprintf("%s %s %s",
				entry.DisplayName(),
				styles.AccountIDStyle.Render("("+entry.AccountID+")"),
				entry.RoleName)

			switch {
			case i == m.cursor:
				b.WriteString(styles.SelectedRowStyle.Render("❯ " + line))
			case entry.Ignored:
				b.WriteString("  " + styles.IgnoredRowStyle.Render(entry.Label()))
			default:
				b.WriteString("  " + styles.RowStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(styles.HelpStyle.Render("↑/↓ move · enter select · esc cancel"))
	return b.String()
}

// listWindow keeps the cursor visible inside a height-bounded slice of the
// match list.
func listWindow(cursor, total, height int) (int, int) {
	if total <= height {
		return 0, total
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > total {
		end = total
		start = end - height
	}
	return start, end
}

// Run shows the picker and returns the chosen entry, or nil when the user
// cancelled. When opts.Query uniquely identifies one candidate the picker is
// skipped entirely.
func Run(entries []catalog.Entry, opts Options) (*catalog.Entry, error) {
	if opts.Query != "" {
		if entry, ok := UniqueMatch(entries, opts.Query); ok {
			return entry, nil
		}
	}

	program := tea.NewProgram(NewModel(entries, opts))
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("selection failed: %w", err)
	}

	m := final.(Model)
	if m.Cancelled() {
		return nil, nil
	}
	return m.Choice(), nil
}

// UniqueMatch reports whether query narrows entries to exactly one candidate.
func UniqueMatch(entries []catalog.Entry, query string) (*catalog.Entry, bool) {
	matches := Rank(entries, query, nil, "")
	if len(matches) != 1 {
		return nil, false
	}
	return &matches[0], true
}
