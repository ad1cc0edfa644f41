package mediactl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerCaptureAlwaysExecutes(t *testing.T) {
	r := &Runner{DryRun: true}
	out, err := r.Capture("echo", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "hello", "captures are read-only and run even under dry-run")
}

func TestRunnerApplyDryRun(t *testing.T) {
	r := &Runner{DryRun: true}
	assert.NoError(t, r.Apply("false"), "dry-run never executes, so a failing command cannot fail")
}

func TestRunnerApplyReportsOutput(t *testing.T) {
	r := &Runner{}
	err := r.Apply("sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunnerWriteFileDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	r := &Runner{DryRun: true}
	require.NoError(t, r.WriteFile(path, []byte("data"), 0o640))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	r = &Runner{}
	require.NoError(t, r.WriteFile(path, []byte("data"), 0o640))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}

func TestRunnerEnsureDirAndRemoveAll(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "a", "b")

	dry := &Runner{DryRun: true}
	require.NoError(t, dry.EnsureDir(nested, 0o750))
	assert.False(t, DirExists(nested))

	r := &Runner{}
	require.NoError(t, r.EnsureDir(nested, 0o750))
	assert.True(t, DirExists(nested))

	require.NoError(t, dry.RemoveAll(nested))
	assert.True(t, DirExists(nested), "dry-run remove is a no-op")

	require.NoError(t, r.RemoveAll(nested))
	assert.False(t, DirExists(nested))
}
