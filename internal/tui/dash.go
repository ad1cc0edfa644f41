package tui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/airbreak404/media-server/internal/mediactl"
)

const dashRefreshInterval = 5 * time.Second

type dashTab int

const (
	tabStack dashTab = iota
	tabPhases
	tabHealth
)

var tabNames = []string{"Stack", "Phases", "Health"}

type containerRow struct {
	Service string `json:"Service"`
	Name    string `json:"Name"`
	State   string `json:"State"`
	Status  string `json:"Status"`
}

type dashRefreshMsg struct {
	rows      []containerRow
	installed []string
	health    mediactl.HealthState
	err       error
}

type dashTickMsg struct{}

type execDoneMsg struct{ err error }

type dashModel struct {
	cfg       mediactl.Config
	tab       dashTab
	cursor    int
	rows      []containerRow
	installed []string
	health    mediactl.HealthState
	lastErr   error
	message   string
	width     int
	height    int
}

// StartDash runs the live stack dashboard.
func StartDash() error {
	cfg, err := mediactl.LoadConfig()
	if err != nil {
		return err
	}
	if err := mediactl.HydrateFromDotEnv(&cfg); err != nil {
		return err
	}

	m := dashModel{cfg: cfg}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func (m dashModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), dashTick())
}

func dashTick() tea.Cmd {
	return tea.Tick(dashRefreshInterval, func(time.Time) tea.Msg {
		return dashTickMsg{}
	})
}

func (m dashModel) refresh() tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		msg := dashRefreshMsg{}

		args := append(mediactl.ComposeBaseArgs(cfg), "ps", "--all", "--format", "json")
		out, err := exec.Command("docker", args...).Output()
		if err != nil {
			msg.err = fmt.Errorf("docker compose ps: %w", err)
			return msg
		}
		// One JSON object per line since compose v2.21.
		sc := bufio.NewScanner(strings.NewReader(string(out)))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			var row containerRow
			if err := json.Unmarshal([]byte(line), &row); err != nil {
				continue
			}
			msg.rows = append(msg.rows, row)
		}

		if installed, err := mediactl.LoadInstalledPhases(cfg); err == nil {
			msg.installed = installed
		}
		store := mediactl.NewStateStore(cfg.StatePath())
		if st, err := store.Load(); err == nil {
			msg.health = st
		}
		return msg
	}
}

func (m dashModel) selectedService() string {
	if m.tab != tabStack || m.cursor >= len(m.rows) {
		return ""
	}
	return m.rows[m.cursor].Service
}

func (m dashModel) composeExec(extra ...string) tea.Cmd {
	args := append(mediactl.ComposeBaseArgs(m.cfg), extra...)
	c := exec.Command("docker", args...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return execDoneMsg{err: err}
	})
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(m.refresh(), dashTick())

	case dashRefreshMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.rows = msg.rows
		m.installed = msg.installed
		m.health = msg.health
		if m.cursor >= len(m.rows) && len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
		}
		return m, nil

	case execDoneMsg:
		if msg.err != nil {
			m.message = errorStyle.Render(msg.err.Error())
		} else {
			m.message = ""
		}
		return m, m.refresh()

	case tea.KeyMsg:
		if isQuit(msg) || msg.String() == "q" {
			return m, tea.Quit
		}
		if isTab(msg) || isRight(msg) {
			m.tab = (m.tab + 1) % dashTab(len(tabNames))
			m.cursor = 0
			return m, nil
		}
		if isLeft(msg) {
			m.tab = (m.tab + dashTab(len(tabNames)) - 1) % dashTab(len(tabNames))
			m.cursor = 0
			return m, nil
		}
		if isUp(msg) && m.cursor > 0 {
			m.cursor--
			return m, nil
		}
		if isDown(msg) && m.tab == tabStack && m.cursor < len(m.rows)-1 {
			m.cursor++
			return m, nil
		}
		switch msg.String() {
		case "r":
			if svc := m.selectedService(); svc != "" {
				m.message = mutedStyle.Render("restarting " + svc)
				return m, m.composeExec("restart", svc)
			}
		case "L":
			if svc := m.selectedService(); svc != "" {
				return m, m.composeExec("logs", "--tail", "200", "-f", svc)
			}
		case "x":
			if svc := m.selectedService(); svc != "" {
				m.message = mutedStyle.Render("stopping " + svc)
				return m, m.composeExec("stop", svc)
			}
		}
	}
	return m, nil
}

func (m dashModel) View() string {
	var b strings.Builder

	var tabs []string
	for i, name := range tabNames {
		if dashTab(i) == m.tab {
			tabs = append(tabs, activeTabStyle.Render(" "+name+" "))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(" "+name+" "))
		}
	}
	b.WriteString("  " + strings.Join(tabs, " | "))
	b.WriteString("\n\n")

	if m.lastErr != nil {
		b.WriteString("  " + errorStyle.Render(m.lastErr.Error()) + "\n")
	}

	switch m.tab {
	case tabStack:
		b.WriteString(m.viewStack())
	case tabPhases:
		b.WriteString(m.viewPhases())
	case tabHealth:
		b.WriteString(m.viewHealth())
	}

	if m.message != "" {
		b.WriteString("\n  " + m.message + "\n")
	}
	b.WriteString(helpStyle.Render("\n  tab: switch  r: restart  L: logs  x: stop  q: quit"))
	return b.String()
}

func (m dashModel) viewStack() string {
	var b strings.Builder
	b.WriteString("  " + tableHeaderStyle.Render(fmt.Sprintf("%-14s %-10s %s", "SERVICE", "STATE", "STATUS")))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString("  " + mutedStyle.Render("no containers (is the stack up?)") + "\n")
		return b.String()
	}

	for i, row := range m.rows {
		var state string
		switch row.State {
		case "running":
			state = statusRunning.Render(fmt.Sprintf("%-10s", row.State))
		case "exited", "dead":
			state = statusStopped.Render(fmt.Sprintf("%-10s", row.State))
		default:
			state = statusUnknown.Render(fmt.Sprintf("%-10s", row.State))
		}
		line := fmt.Sprintf("%-14s %s %s", row.Service, state, mutedStyle.Render(row.Status))
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("  %s %s\n", cursorChar, line))
		} else {
			b.WriteString(fmt.Sprintf("    %s\n", line))
		}
	}
	return b.String()
}

func (m dashModel) viewPhases() string {
	var b strings.Builder
	for _, p := range mediactl.SortedPhases() {
		mark := checkOff
		for _, name := range m.installed {
			if name == p.Name {
				mark = checkOn
				break
			}
		}
		b.WriteString(fmt.Sprintf("  %s %-12s %s\n", mark, p.Name, mutedStyle.Render(p.Description)))
	}
	return b.String()
}

func (m dashModel) viewHealth() string {
	var b strings.Builder

	if m.health.UpdatedAt.IsZero() {
		b.WriteString("  " + mutedStyle.Render("no health data yet; run: mediactl health") + "\n")
		return b.String()
	}

	b.WriteString("  " + mutedStyle.Render("last run "+m.health.UpdatedAt.Format(time.RFC3339)) + "\n\n")
	names := make([]string, 0, len(m.health.Checks))
	for name := range m.health.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		check := m.health.Checks[name]
		var state string
		switch check.State {
		case "pass":
			state = statusRunning.Render("pass")
		case "warn":
			state = statusUnknown.Render("warn")
		default:
			state = statusStopped.Render(check.State)
		}
		line := fmt.Sprintf("%-20s %s", name, state)
		if check.Detail != "" {
			line += "  " + mutedStyle.Render(check.Detail)
		}
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}
