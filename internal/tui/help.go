package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type helpReturnMsg struct{}

type helpEntry struct {
	key  string
	desc string
}

type helpSection struct {
	title   string
	entries []helpEntry
}

type helpModel struct {
	sections []helpSection
}

func newHelpModel() *helpModel {
	return &helpModel{
		sections: []helpSection{
			{
				title: "Wizard",
				entries: []helpEntry{
					{"up/down, k/j", "move the cursor"},
					{"space", "toggle a phase"},
					{"enter", "confirm / continue"},
					{"esc", "go back one screen"},
				},
			},
			{
				title: "Dashboard (mediactl dash)",
				entries: []helpEntry{
					{"tab, left/right", "switch tabs"},
					{"r", "restart selected service"},
					{"L", "tail logs of selected service"},
					{"x", "stop selected service"},
				},
			},
			{
				title: "Global",
				entries: []helpEntry{
					{"?", "this help"},
					{"ctrl+c", "quit"},
				},
			},
		},
	}
}

func (m *helpModel) Init() tea.Cmd {
	return nil
}

func (m *helpModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isEsc(msg) || isEnter(msg) || msg.String() == "?" {
			return m, func() tea.Msg { return helpReturnMsg{} }
		}
	}
	return m, nil
}

func (m *helpModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n")

	for _, sec := range m.sections {
		b.WriteString(categoryStyle.Render("  " + sec.title))
		b.WriteString("\n")
		for _, e := range sec.entries {
			b.WriteString(fmt.Sprintf("    %-18s %s\n", selectedStyle.Render(e.key), mutedStyle.Render(e.desc)))
		}
	}

	b.WriteString(helpStyle.Render("\n  esc/enter: close"))
	return b.String()
}
