package mediactl

import (
	"fmt"
	"os"
	"path/filepath"
)

// RunInit lays down the stack root: directories, .env from template (never
// clobbering an existing one), phases.yml and the generated compose.yml.
func RunInit(cfg Config) error {
	if err := ensureStackDirs(cfg); err != nil {
		return err
	}
	if err := ensureDotEnv(cfg); err != nil {
		return err
	}
	if err := ensureDefaultPhases(cfg); err != nil {
		return err
	}

	if err := HydrateFromDotEnv(&cfg); err != nil {
		return err
	}
	env, err := ReadDotEnv(cfg.EnvPath())
	if err != nil {
		return err
	}
	if err := ValidateEnv(env); err != nil {
		return err
	}

	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}
	if err := WriteCompose(cfg, installed); err != nil {
		return err
	}
	if err := SyncPhaseAssets(cfg, installed); err != nil {
		return err
	}

	fmt.Printf("initialized stack at %s\n", cfg.StackRoot)
	fmt.Printf("next: mediactl up\n")
	return nil
}

func ensureStackDirs(cfg Config) error {
	dirs := []string{
		cfg.StackRoot,
		filepath.Join(cfg.StackRoot, "state"),
		filepath.Join(cfg.StackRoot, "cloudflared"),
		filepath.Join(cfg.MediaRoot, "tv"),
		filepath.Join(cfg.MediaRoot, "movies"),
		filepath.Join(cfg.DownloadRoot),
		filepath.Join(cfg.BackupRoot),
	}
	for _, name := range SortedServiceNames() {
		dirs = append(dirs, filepath.Join(cfg.StackRoot, "config", name))
	}
	for _, dir := range dirs {
		if err := ensureDir(dir, 0o750); err != nil {
			return err
		}
	}
	return nil
}

func ensureDotEnv(cfg Config) error {
	target := cfg.EnvPath()
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	tplPath := filepath.Join(findTemplatesDir(), ".env.example")
	data := cfg.RenderData()
	text, err := renderFile(tplPath, data)
	if err != nil {
		return fmt.Errorf("render .env template: %w", err)
	}
	return os.WriteFile(target, []byte(text), 0o640)
}

func ensureDefaultPhases(cfg Config) error {
	if _, err := os.Stat(cfg.PhasesPath()); err == nil {
		return nil
	}
	return WriteInstalledPhases(cfg, []string{})
}
