package mediactl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WriteCompose renders the base compose file, deep-merges the overlay of
// every installed phase, and writes compose.yml at the stack root.
func WriteCompose(cfg Config, installedPhases []string) error {
	templates := findTemplatesDir()
	data := cfg.RenderData()

	basePath := filepath.Join(templates, "base", "compose.base.yml")
	rendered, err := renderFile(basePath, data)
	if err != nil {
		return err
	}

	merged := map[string]any{}
	if err := yaml.Unmarshal([]byte(rendered), &merged); err != nil {
		return err
	}

	// Only merge installed phases, not the whole catalog.
	for _, phase := range installedPhases {
		overlayPath := filepath.Join(templates, "phases", phase, "compose.yml")
		if _, err := os.Stat(overlayPath); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		overlayRendered, err := renderFile(overlayPath, data)
		if err != nil {
			return fmt.Errorf("render phase %s compose: %w", phase, err)
		}
		var overlay map[string]any
		if err := yaml.Unmarshal([]byte(overlayRendered), &overlay); err != nil {
			return fmt.Errorf("parse phase %s compose: %w", phase, err)
		}
		deepMerge(merged, overlay)
	}

	if _, ok := merged["x-mediactl"]; !ok {
		merged["x-mediactl"] = map[string]any{}
	}
	x := merged["x-mediactl"].(map[string]any)
	x["installed_phases"] = installedPhases
	x["generated_at"] = time.Now().UTC().Format(time.RFC3339)

	out, err := yaml.Marshal(merged)
	if err != nil {
		return err
	}

	target := filepath.Join(cfg.StackRoot, "compose.yml")
	return os.WriteFile(target, out, 0o640)
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		existing, exists := dst[k]
		if !exists {
			dst[k] = v
			continue
		}

		dstMap, dstMapOK := existing.(map[string]any)
		srcMap, srcMapOK := v.(map[string]any)
		if dstMapOK && srcMapOK {
			deepMerge(dstMap, srcMap)
			continue
		}

		dstSlice, dstSliceOK := existing.([]any)
		srcSlice, srcSliceOK := v.([]any)
		if dstSliceOK && srcSliceOK {
			dst[k] = append(dstSlice, srcSlice...)
			continue
		}

		dst[k] = v
	}
}

// SyncPhaseAssets copies non-compose files shipped with each phase template
// into the stack root, never clobbering operator-edited copies.
func SyncPhaseAssets(cfg Config, installedPhases []string) error {
	templates := findTemplatesDir()
	for _, phase := range installedPhases {
		srcDir := filepath.Join(templates, "phases", phase)
		if !DirExists(srcDir) {
			continue
		}
		dstDir := filepath.Join(cfg.StackRoot, phase)

		err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			rel, err := filepath.Rel(srcDir, path)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}
			if d.IsDir() {
				return ensureDir(filepath.Join(dstDir, rel), 0o750)
			}
			if filepath.Base(path) == "compose.yml" {
				return nil
			}

			target := filepath.Join(dstDir, rel)
			if _, err := os.Stat(target); err == nil {
				return nil
			}
			return copyFile(path, target)
		})
		if err != nil {
			return fmt.Errorf("sync phase assets for %s: %w", phase, err)
		}
	}
	return nil
}

func ComposeBaseArgs(cfg Config) []string {
	return []string{
		"compose",
		"-f", filepath.Join(cfg.StackRoot, "compose.yml"),
		"--env-file", cfg.EnvPath(),
		"-p", "mediaserver",
	}
}

// composeProfileArgs appends a --profile flag per installed phase, matching
// the profiles declared in the phase overlays.
func composeProfileArgs(cfg Config, installedPhases []string) []string {
	args := ComposeBaseArgs(cfg)
	for _, phase := range installedPhases {
		args = append(args, "--profile", phase)
	}
	return args
}

func ComposeUp(r *Runner, cfg Config, installedPhases []string) error {
	args := composeProfileArgs(cfg, installedPhases)
	args = append(args, "up", "-d", "--remove-orphans")
	return r.Stream("docker", args...)
}

func ComposeDown(r *Runner, cfg Config, installedPhases []string, removeVolumes bool) error {
	args := composeProfileArgs(cfg, installedPhases)
	args = append(args, "down")
	if removeVolumes {
		args = append(args, "--volumes")
	}
	return r.Stream("docker", args...)
}

func ComposeServiceExists(r *Runner, cfg Config, service string) bool {
	args := ComposeBaseArgs(cfg)
	args = append(args, "config", "--services")
	out, err := r.Capture("docker", args...)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == service {
			return true
		}
	}
	return false
}

func ComposeServiceRunning(r *Runner, cfg Config, service string) bool {
	args := ComposeBaseArgs(cfg)
	args = append(args, "ps", "-q", service)
	out, err := r.Capture("docker", args...)
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) != ""
}
