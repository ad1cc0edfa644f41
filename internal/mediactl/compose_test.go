package mediactl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"services": map[string]any{
			"jellyfin": map[string]any{"image": "jellyfin:latest"},
		},
		"networks": map[string]any{"media_net": nil},
		"volumes":  []any{"a"},
		"scalar":   "old",
	}
	src := map[string]any{
		"services": map[string]any{
			"homarr": map[string]any{"image": "homarr:latest"},
		},
		"volumes": []any{"b"},
		"scalar":  "new",
		"extra":   true,
	}

	deepMerge(dst, src)

	services := dst["services"].(map[string]any)
	assert.Contains(t, services, "jellyfin", "existing keys survive")
	assert.Contains(t, services, "homarr", "overlay keys merge in")
	assert.Equal(t, []any{"a", "b"}, dst["volumes"], "slices concatenate")
	assert.Equal(t, "new", dst["scalar"], "scalars take the overlay value")
	assert.Equal(t, true, dst["extra"])
}

func writeTestTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	base := `services:
  jellyfin:
    image: jellyfin:latest
    environment:
      - TZ={{.Timezone}}
networks:
  {{.NetworkName}}:
    driver: bridge
`
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "base"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base", "compose.base.yml"), []byte(base), 0o640))

	overlay := `services:
  uptime-kuma:
    image: louislam/uptime-kuma:1
    profiles: ["monitoring"]
`
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "phases", "monitoring"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "phases", "monitoring", "compose.yml"), []byte(overlay), 0o640))

	return dir
}

func TestWriteCompose(t *testing.T) {
	t.Setenv("MEDIACTL_TEMPLATES", writeTestTemplates(t))

	cfg := Config{
		StackRoot: t.TempDir(),
		Timezone:  "Etc/UTC",
	}

	require.NoError(t, WriteCompose(cfg, []string{"monitoring"}))

	raw, err := os.ReadFile(filepath.Join(cfg.StackRoot, "compose.yml"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))

	services := doc["services"].(map[string]any)
	assert.Contains(t, services, "jellyfin")
	assert.Contains(t, services, "uptime-kuma", "installed phase overlay is merged")

	jellyfin := services["jellyfin"].(map[string]any)
	env := jellyfin["environment"].([]any)
	assert.Contains(t, env, "TZ=Etc/UTC", "template variables render")

	meta := doc["x-mediactl"].(map[string]any)
	assert.Equal(t, []any{"monitoring"}, meta["installed_phases"])
	assert.NotEmpty(t, meta["generated_at"])
}

func TestWriteComposeSkipsAbsentPhases(t *testing.T) {
	t.Setenv("MEDIACTL_TEMPLATES", writeTestTemplates(t))

	cfg := Config{StackRoot: t.TempDir(), Timezone: "Etc/UTC"}
	require.NoError(t, WriteCompose(cfg, nil))

	raw, err := os.ReadFile(filepath.Join(cfg.StackRoot, "compose.yml"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	services := doc["services"].(map[string]any)
	assert.NotContains(t, services, "uptime-kuma")
}

func TestComposeBaseArgs(t *testing.T) {
	cfg := Config{StackRoot: "/srv/mediaserver"}
	args := ComposeBaseArgs(cfg)
	assert.Equal(t, []string{
		"compose",
		"-f", "/srv/mediaserver/compose.yml",
		"--env-file", "/srv/mediaserver/.env",
		"-p", "mediaserver",
	}, args)
}

func TestComposeProfileArgs(t *testing.T) {
	cfg := Config{StackRoot: "/srv/mediaserver"}
	args := composeProfileArgs(cfg, []string{"dashboard", "monitoring"})
	assert.Contains(t, args, "--profile")
	assert.Contains(t, args, "dashboard")
	assert.Contains(t, args, "monitoring")
}
