package mediactl

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPhase(t *testing.T) {
	byName, err := LookupPhase("monitoring")
	require.NoError(t, err)
	assert.Equal(t, 2, byName.Number)

	byNumber, err := LookupPhase("2")
	require.NoError(t, err)
	assert.Equal(t, "monitoring", byNumber.Name)

	_, err = LookupPhase("nope")
	assert.Error(t, err)
}

func TestSortedPhasesOrder(t *testing.T) {
	phases := SortedPhases()
	require.Len(t, phases, 3)
	assert.Equal(t, "dashboard", phases[0].Name)
	assert.Equal(t, "monitoring", phases[1].Name)
	assert.Equal(t, "maintenance", phases[2].Name)
}

func TestMissingPredecessors(t *testing.T) {
	monitoring := PhaseCatalog["monitoring"]

	assert.Equal(t, []string{"dashboard"}, MissingPredecessors(monitoring, nil))
	assert.Empty(t, MissingPredecessors(monitoring, []string{"dashboard"}))

	dashboard := PhaseCatalog["dashboard"]
	assert.Empty(t, MissingPredecessors(dashboard, nil), "first phase has no predecessors")
}

func TestInstalledDependents(t *testing.T) {
	dashboard := PhaseCatalog["dashboard"]

	deps := InstalledDependents(dashboard, []string{"dashboard", "monitoring"})
	assert.Equal(t, []string{"monitoring"}, deps)

	assert.Empty(t, InstalledDependents(dashboard, []string{"dashboard"}))

	maintenance := PhaseCatalog["maintenance"]
	assert.Empty(t, InstalledDependents(maintenance, []string{"dashboard", "monitoring", "maintenance"}),
		"last phase has no dependents")
}

func TestInstalledPhasesRoundTrip(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir()}

	installed, err := LoadInstalledPhases(cfg)
	require.NoError(t, err)
	assert.Empty(t, installed, "missing file means nothing installed")

	require.NoError(t, WriteInstalledPhases(cfg, []string{"monitoring", "dashboard"}))

	installed, err = LoadInstalledPhases(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard", "monitoring"}, installed, "set is kept sorted")
}

func TestWriteInstalledPhasesLeavesNoTempFile(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir()}

	require.NoError(t, WriteInstalledPhases(cfg, []string{"dashboard"}))
	require.NoError(t, WriteInstalledPhases(cfg, []string{"dashboard", "monitoring"}))

	_, err := os.Stat(cfg.PhasesPath() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	installed, err := LoadInstalledPhases(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard", "monitoring"}, installed)
}

func TestLoadInstalledPhasesDropsUnknownNames(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir()}
	content := "installed:\n  - dashboard\n  - retired-phase\n"
	require.NoError(t, os.WriteFile(cfg.PhasesPath(), []byte(content), 0o640))

	installed, err := LoadInstalledPhases(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard"}, installed)
}

func TestLoadInstalledPhasesBadYAML(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir()}
	require.NoError(t, os.WriteFile(cfg.PhasesPath(), []byte("installed: {{{"), 0o640))

	_, err := LoadInstalledPhases(cfg)
	assert.Error(t, err)
}
