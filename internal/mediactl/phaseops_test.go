package mediactl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommand shadows an external binary with a shell script for the duration
// of the test, so install paths can run without docker or a real crontab.
func stubCommand(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestInstallPhaseRefusesMissingPredecessor(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir()}
	r := &Runner{DryRun: true}

	monitoring := PhaseCatalog["monitoring"]
	err := InstallPhase(r, cfg, monitoring, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard")
	assert.Contains(t, err.Error(), "--force")
}

func TestInstallPhaseDryRunRecordsNothing(t *testing.T) {
	t.Setenv("MEDIACTL_TEMPLATES", "../../templates")
	cfg := Config{StackRoot: t.TempDir()}
	r := &Runner{DryRun: true}

	dashboard := PhaseCatalog["dashboard"]
	require.NoError(t, InstallPhase(r, cfg, dashboard, false))

	installed, err := LoadInstalledPhases(cfg)
	require.NoError(t, err)
	assert.Empty(t, installed, "dry-run must not change the installed set")
}

func TestInstallPhaseSecondRunPreservesOperatorEdits(t *testing.T) {
	t.Setenv("MEDIACTL_TEMPLATES", "../../templates")
	stubCommand(t, "docker", "exit 0")

	cfg := Config{
		StackRoot:    t.TempDir(),
		MediaRoot:    t.TempDir(),
		DownloadRoot: t.TempDir(),
		BackupRoot:   t.TempDir(),
		Domain:       "media.example.com",
		Timezone:     "UTC",
		PUID:         "1000",
		PGID:         "1000",
	}
	r := &Runner{}
	dashboard := PhaseCatalog["dashboard"]

	require.NoError(t, InstallPhase(r, cfg, dashboard, false))

	target := filepath.Join(cfg.StackRoot, "nginx", "nginx.conf")
	require.True(t, fileExists(target), "first install renders the proxy config")

	edited := "# operator tuned\nworker_processes 4;\n"
	require.NoError(t, os.WriteFile(target, []byte(edited), 0o640))

	require.NoError(t, InstallPhase(r, cfg, dashboard, false))

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, edited, string(b), "re-install must not clobber an edited config")

	installed, err := LoadInstalledPhases(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard"}, installed, "installed set gains no duplicate entries")
}

func TestRollbackPhaseRefusesWithDependents(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir()}
	require.NoError(t, WriteInstalledPhases(cfg, []string{"dashboard", "monitoring"}))

	r := &Runner{DryRun: true}
	dashboard := PhaseCatalog["dashboard"]

	err := RollbackPhase(r, cfg, dashboard, false, false, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring")

	installed, err := LoadInstalledPhases(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard", "monitoring"}, installed, "refused rollback changes nothing")
}

func TestRollbackPhaseDryRunKeepsRecord(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir()}
	require.NoError(t, WriteInstalledPhases(cfg, []string{"dashboard"}))

	r := &Runner{DryRun: true}
	dashboard := PhaseCatalog["dashboard"]
	require.NoError(t, RollbackPhase(r, cfg, dashboard, false, false, true))

	installed, err := LoadInstalledPhases(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard"}, installed)
}

func TestVerifyPhaseReadsWithoutRepairing(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir()}
	r := &Runner{}

	dashboard := PhaseCatalog["dashboard"]
	rep, err := VerifyPhase(r, cfg, dashboard)
	require.NoError(t, err)

	byName := map[string]HealthResult{}
	for _, res := range rep.Results {
		byName[res.Check.Name] = res
	}
	assert.Equal(t, StateFail, byName["recorded installed"].State)
	assert.Equal(t, StateFail, byName["dir homarr"].State)

	// Nothing was created by verifying.
	assert.False(t, DirExists(cfg.StackRoot+"/config/homarr"))

	require.NoError(t, WriteInstalledPhases(cfg, []string{"dashboard"}))
	rep, err = VerifyPhase(r, cfg, dashboard)
	require.NoError(t, err)
	for _, res := range rep.Results {
		if res.Check.Name == "recorded installed" {
			assert.Equal(t, StatePass, res.State)
		}
	}
}
