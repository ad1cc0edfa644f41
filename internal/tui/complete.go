package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/airbreak404/media-server/internal/mediactl"
)

type completeModel struct {
	state *wizardState
	urls  []string
}

func newCompleteModel(state *wizardState) *completeModel {
	return &completeModel{state: state}
}

func (m *completeModel) Init() tea.Cmd {
	cfg, err := mediactl.LoadConfig()
	if err == nil {
		if err := mediactl.HydrateFromDotEnv(&cfg); err == nil {
			m.urls = mediactl.AccessURLs(cfg)
		}
	}
	return nil
}

func (m *completeModel) Update(msg tea.Msg) (screenModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isEnter(msg) || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *completeModel) View() string {
	var b strings.Builder

	b.WriteString(successStyle.Render("  Setup complete"))
	b.WriteString("\n\n")

	if len(m.urls) > 0 {
		b.WriteString(categoryStyle.Render("  Access"))
		b.WriteString("\n")
		for _, url := range m.urls {
			b.WriteString("    " + normalStyle.Render(url) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(categoryStyle.Render("  Next steps"))
	b.WriteString("\n")
	next := []string{
		"mediactl tunnel          expose services through Cloudflare",
		"mediactl apps configure  wire Sonarr/Radarr/Prowlarr to the download client",
		"mediactl health          check container and endpoint health",
		"mediactl dash            live stack dashboard",
	}
	for _, line := range next {
		b.WriteString("    " + mutedStyle.Render(line) + "\n")
	}

	b.WriteString(helpStyle.Render("\n  enter/q: exit"))
	return b.String()
}
