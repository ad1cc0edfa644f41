package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/airbreak404/media-server/internal/mediactl"
)

type phaseSelectModel struct {
	state    *wizardState
	phases   []mediactl.Phase
	cursor   int
	selected map[string]bool
}

func newPhaseSelectModel(state *wizardState) *phaseSelectModel {
	m := &phaseSelectModel{
		state:    state,
		phases:   mediactl.SortedPhases(),
		selected: make(map[string]bool),
	}
	for _, name := range state.phases {
		m.selected[name] = true
	}
	return m
}

func (m *phaseSelectModel) Init() tea.Cmd {
	return nil
}

func (m *phaseSelectModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isEsc(msg) {
			return m, func() tea.Msg { return navigateMsg{to: screenTimezoneInput} }
		}
		if isUp(msg) && m.cursor > 0 {
			m.cursor--
		}
		if isDown(msg) && m.cursor < len(m.phases)-1 {
			m.cursor++
		}
		if isSpace(msg) {
			m.toggle(m.phases[m.cursor])
		}
		if isEnter(msg) {
			m.state.phases = m.selectedInOrder()
			return m, func() tea.Msg { return navigateMsg{to: screenConfirm} }
		}
	}
	return m, nil
}

// toggle flips a phase on or off, keeping the selection closed under the
// phase dependency chain: selecting monitoring pulls in dashboard, and
// deselecting dashboard drops monitoring and maintenance with it.
func (m *phaseSelectModel) toggle(phase mediactl.Phase) {
	if m.selected[phase.Name] {
		delete(m.selected, phase.Name)
		for _, other := range m.phases {
			if m.selected[other.Name] && m.requiresTransitively(other, phase.Name) {
				delete(m.selected, other.Name)
			}
		}
		return
	}

	m.selected[phase.Name] = true
	for _, req := range phase.Requires {
		if p, err := mediactl.LookupPhase(req); err == nil && !m.selected[p.Name] {
			m.toggle(p)
		}
	}
}

func (m *phaseSelectModel) requiresTransitively(phase mediactl.Phase, name string) bool {
	for _, req := range phase.Requires {
		if req == name {
			return true
		}
		if p, err := mediactl.LookupPhase(req); err == nil && m.requiresTransitively(p, name) {
			return true
		}
	}
	return false
}

func (m *phaseSelectModel) selectedInOrder() []string {
	var out []string
	for _, p := range m.phases {
		if m.selected[p.Name] {
			out = append(out, p.Name)
		}
	}
	return out
}

func (m *phaseSelectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Optional Phases"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("The base stack always installs. Pick extras; dependencies resolve automatically."))
	b.WriteString("\n\n")

	for i, p := range m.phases {
		check := checkOff
		if m.selected[p.Name] {
			check = checkOn
		}
		cursor := " "
		label := normalStyle.Render(p.Name)
		if i == m.cursor {
			cursor = cursorChar
			label = selectedStyle.Render(p.Name)
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n", cursor, check, label))
		desc := p.Description
		if len(p.Requires) > 0 {
			desc += fmt.Sprintf(" (requires %s)", strings.Join(p.Requires, ", "))
		}
		b.WriteString(fmt.Sprintf("        %s\n", mutedStyle.Render(desc)))
	}

	b.WriteString(helpStyle.Render("\n  space: toggle  enter: continue  esc: back"))
	return b.String()
}
