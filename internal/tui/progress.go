package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/airbreak404/media-server/internal/mediactl"
)

type installStep struct {
	label string
	run   func() error
}

type stepDoneMsg struct {
	index int
	err   error
}

type progressModel struct {
	state   *wizardState
	spin    spinner.Model
	steps   []installStep
	current int
	done    []bool
	failed  error
}

func newProgressModel(state *wizardState) *progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return &progressModel{state: state, spin: sp}
}

func buildSteps(state *wizardState) ([]installStep, error) {
	cfg, err := mediactl.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Domain = state.domain
	cfg.Timezone = state.timezone
	if cfg.PUID == "" {
		cfg.PUID = "1000"
	}
	if cfg.PGID == "" {
		cfg.PGID = "1000"
	}
	r := &mediactl.Runner{}

	steps := []installStep{
		{
			label: "Initialize stack directory",
			run:   func() error { return mediactl.RunInit(cfg) },
		},
		{
			label: "Start base services",
			run: func() error {
				installed, err := mediactl.LoadInstalledPhases(cfg)
				if err != nil {
					return err
				}
				return mediactl.ComposeUp(r, cfg, installed)
			},
		},
	}
	for _, name := range state.phases {
		phase, err := mediactl.LookupPhase(name)
		if err != nil {
			return nil, err
		}
		steps = append(steps, installStep{
			label: fmt.Sprintf("Install phase: %s", phase.Name),
			run:   func() error { return mediactl.InstallPhase(r, cfg, phase, false) },
		})
	}
	return steps, nil
}

func (m *progressModel) Init() tea.Cmd {
	steps, err := buildSteps(m.state)
	if err != nil {
		m.failed = err
		return nil
	}
	m.steps = steps
	m.done = make([]bool, len(steps))
	m.current = 0
	m.failed = nil
	return tea.Batch(m.spin.Tick, m.runStep(0))
}

func (m *progressModel) runStep(i int) tea.Cmd {
	step := m.steps[i]
	return func() tea.Msg {
		return stepDoneMsg{index: i, err: step.run()}
	}
}

func (m *progressModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case stepDoneMsg:
		if msg.err != nil {
			m.failed = fmt.Errorf("%s: %w", m.steps[msg.index].label, msg.err)
			return m, nil
		}
		m.done[msg.index] = true
		m.current = msg.index + 1
		if m.current >= len(m.steps) {
			return m, func() tea.Msg { return navigateMsg{to: screenComplete} }
		}
		return m, m.runStep(m.current)

	case spinner.TickMsg:
		if m.failed != nil || m.current >= len(m.steps) {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.failed != nil && (isEnter(msg) || isEsc(msg)) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *progressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Installing"))
	b.WriteString("\n\n")

	for i, step := range m.steps {
		switch {
		case m.done[i]:
			b.WriteString(fmt.Sprintf("  %s %s\n", successStyle.Render("done"), step.label))
		case i == m.current && m.failed == nil:
			b.WriteString(fmt.Sprintf("  %s %s\n", m.spin.View(), selectedStyle.Render(step.label)))
		case i == m.current:
			b.WriteString(fmt.Sprintf("  %s %s\n", errorStyle.Render("fail"), step.label))
		default:
			b.WriteString(fmt.Sprintf("       %s\n", mutedStyle.Render(step.label)))
		}
	}

	if m.failed != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("  " + m.failed.Error()))
		b.WriteString(helpStyle.Render("\n  enter: exit"))
	}
	return b.String()
}
