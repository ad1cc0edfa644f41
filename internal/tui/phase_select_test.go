package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airbreak404/media-server/internal/mediactl"
)

func phaseByName(t *testing.T, m *phaseSelectModel, name string) mediactl.Phase {
	t.Helper()
	for _, p := range m.phases {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("phase %s not in catalog", name)
	return mediactl.Phase{}
}

func TestPhaseSelectTogglePullsInRequirements(t *testing.T) {
	m := newPhaseSelectModel(&wizardState{})

	m.toggle(phaseByName(t, m, "maintenance"))

	assert.True(t, m.selected["maintenance"])
	assert.True(t, m.selected["monitoring"], "transitive requirement selected")
	assert.True(t, m.selected["dashboard"], "transitive requirement selected")
	assert.Equal(t, []string{"dashboard", "monitoring", "maintenance"}, m.selectedInOrder())
}

func TestPhaseSelectDeselectDropsDependents(t *testing.T) {
	m := newPhaseSelectModel(&wizardState{})
	m.toggle(phaseByName(t, m, "maintenance"))

	m.toggle(phaseByName(t, m, "dashboard"))

	assert.False(t, m.selected["dashboard"])
	assert.False(t, m.selected["monitoring"], "dependent dropped with its requirement")
	assert.False(t, m.selected["maintenance"])
	assert.Empty(t, m.selectedInOrder())
}

func TestPhaseSelectRestoresPriorSelection(t *testing.T) {
	state := &wizardState{phases: []string{"dashboard"}}
	m := newPhaseSelectModel(state)

	assert.True(t, m.selected["dashboard"])
	assert.False(t, m.selected["monitoring"])
}
