package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type timezoneInputModel struct {
	state  *wizardState
	input  textinput.Model
	errMsg string
}

func newTimezoneInputModel(state *wizardState) *timezoneInputModel {
	ti := textinput.New()
	ti.Placeholder = "Europe/London"
	ti.CharLimit = 64
	ti.Width = 40

	return &timezoneInputModel{
		state: state,
		input: ti,
	}
}

func (m *timezoneInputModel) Init() tea.Cmd {
	if m.state.timezone != "" {
		m.input.SetValue(m.state.timezone)
	}
	m.input.Focus()
	return textinput.Blink
}

func (m *timezoneInputModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isEsc(msg) {
			return m, func() tea.Msg { return navigateMsg{to: screenDomainInput} }
		}
		if isEnter(msg) {
			val := strings.TrimSpace(m.input.Value())
			if val == "" {
				val = "Etc/UTC"
			}
			if _, err := time.LoadLocation(val); err != nil {
				m.errMsg = "Unknown timezone (use IANA names like Europe/London)"
				return m, nil
			}
			m.errMsg = ""
			m.state.timezone = val
			return m, func() tea.Msg { return navigateMsg{to: screenPhaseSelect} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *timezoneInputModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Timezone"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Containers use this for schedules and log timestamps."))
	b.WriteString("\n\n")
	b.WriteString("  " + m.input.View())
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString("\n  " + errorStyle.Render(m.errMsg))
	}

	b.WriteString(helpStyle.Render("\n  enter: confirm  esc: back"))
	return b.String()
}
