package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type confirmModel struct {
	state  *wizardState
	cursor int
}

func newConfirmModel(state *wizardState) *confirmModel {
	return &confirmModel{state: state}
}

func (m *confirmModel) Init() tea.Cmd {
	m.cursor = 0
	return nil
}

func (m *confirmModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isEsc(msg) {
			return m, func() tea.Msg { return navigateMsg{to: screenPhaseSelect} }
		}
		if isLeft(msg) || isRight(msg) || isTab(msg) {
			m.cursor = 1 - m.cursor
		}
		if isEnter(msg) {
			if m.cursor == 0 {
				return m, func() tea.Msg { return navigateMsg{to: screenPreflight} }
			}
			return m, func() tea.Msg { return navigateMsg{to: screenPhaseSelect} }
		}
	}
	return m, nil
}

func (m *confirmModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Review"))
	b.WriteString("\n\n")

	var summary strings.Builder
	summary.WriteString(fmt.Sprintf("%s  %s\n", tableHeaderStyle.Render("Domain:  "), m.state.domain))
	summary.WriteString(fmt.Sprintf("%s  %s\n", tableHeaderStyle.Render("Timezone:"), m.state.timezone))
	phases := "none"
	if len(m.state.phases) > 0 {
		phases = strings.Join(m.state.phases, ", ")
	}
	summary.WriteString(fmt.Sprintf("%s  %s", tableHeaderStyle.Render("Phases:  "), phases))
	b.WriteString(borderStyle.Render(summary.String()))
	b.WriteString("\n\n")

	b.WriteString(mutedStyle.Render("  Equivalent commands:"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("    mediactl init --domain %s --tz %s", m.state.domain, m.state.timezone)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("    mediactl up"))
	b.WriteString("\n")
	for _, p := range m.state.phases {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("    mediactl phase install %s", p)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	proceed := "  Proceed  "
	back := "  Back  "
	if m.cursor == 0 {
		proceed = selectedStyle.Render("> Proceed <")
		back = normalStyle.Render(back)
	} else {
		proceed = normalStyle.Render(proceed)
		back = selectedStyle.Render("> Back <")
	}
	b.WriteString(fmt.Sprintf("  %s   %s\n", proceed, back))

	b.WriteString(helpStyle.Render("\n  left/right: choose  enter: confirm  esc: back"))
	return b.String()
}
