package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/airbreak404/media-server/internal/mediactl"
)

type checksDoneMsg struct {
	results []mediactl.CheckResult
}

type preflightModel struct {
	state   *wizardState
	spin    spinner.Model
	running bool
	results []mediactl.CheckResult
	cursor  int
}

func newPreflightModel(state *wizardState) *preflightModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return &preflightModel{state: state, spin: sp}
}

func (m *preflightModel) Init() tea.Cmd {
	m.running = true
	m.results = nil
	m.cursor = 0
	return tea.Batch(m.spin.Tick, runChecksCmd(m.state))
}

func runChecksCmd(state *wizardState) tea.Cmd {
	return func() tea.Msg {
		cfg, err := mediactl.LoadConfig()
		if err != nil {
			return checksDoneMsg{results: []mediactl.CheckResult{
				{Name: "Load configuration", Hard: true, Err: err},
			}}
		}
		cfg.Domain = state.domain
		cfg.Timezone = state.timezone
		r := &mediactl.Runner{}
		return checksDoneMsg{results: mediactl.RunChecks(r, cfg)}
	}
}

func (m *preflightModel) hardFailures() int {
	n := 0
	for _, res := range m.results {
		if !res.OK() && res.Hard {
			n++
		}
	}
	return n
}

func (m *preflightModel) warnings() int {
	n := 0
	for _, res := range m.results {
		if !res.OK() && !res.Hard {
			n++
		}
	}
	return n
}

func (m *preflightModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checksDoneMsg:
		m.running = false
		m.results = msg.results
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.running {
			return m, nil
		}
		if isEsc(msg) {
			return m, func() tea.Msg { return navigateMsg{to: screenConfirm} }
		}
		if isEnter(msg) {
			if m.hardFailures() > 0 {
				return m, nil
			}
			return m, func() tea.Msg { return navigateMsg{to: screenProgress} }
		}
	}
	return m, nil
}

func (m *preflightModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Preflight Checks"))
	b.WriteString("\n\n")

	if m.running {
		b.WriteString(fmt.Sprintf("  %s Checking system requirements...\n", m.spin.View()))
		return b.String()
	}

	for _, res := range m.results {
		switch {
		case res.OK():
			b.WriteString(fmt.Sprintf("  %s %s\n", successStyle.Render("[ OK ]"), res.Name))
		case res.Hard:
			b.WriteString(fmt.Sprintf("  %s %s\n", errorStyle.Render("[FAIL]"), res.Name))
			b.WriteString(fmt.Sprintf("         %s\n", mutedStyle.Render(res.Err.Error())))
		default:
			b.WriteString(fmt.Sprintf("  %s %s\n", warningStyle.Render("[WARN]"), res.Name))
			b.WriteString(fmt.Sprintf("         %s\n", mutedStyle.Render(res.Err.Error())))
		}
	}
	b.WriteString("\n")

	if m.hardFailures() > 0 {
		b.WriteString(errorStyle.Render("  Fix the failures above and rerun the wizard."))
		b.WriteString(helpStyle.Render("\n  esc: back  ctrl+c: quit"))
		return b.String()
	}
	if m.warnings() > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("  %d warning(s); installation can continue.", m.warnings())))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("\n  enter: install  esc: back"))
	return b.String()
}
