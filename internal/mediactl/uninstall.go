package mediactl

import (
	"fmt"
	"path/filepath"
)

// RunUninstall tears the stack down. Without --purge, config, media and
// backups stay on disk; with it, the stack root is deleted after a
// countdown. Media and backup roots are never deleted.
func RunUninstall(r *Runner, cfg Config, purge, yes bool) error {
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}

	for _, name := range installed {
		phase, ok := PhaseCatalog[name]
		if !ok {
			continue
		}
		if err := RemoveCronJobs(r, phase); err != nil {
			return err
		}
	}

	if fileExists(filepath.Join(cfg.StackRoot, "compose.yml")) {
		if err := ComposeDown(r, cfg, installed, purge); err != nil {
			fmt.Printf("warning: compose down failed: %v\n", err)
		}
	}

	if err := r.Apply("systemctl", "disable", "--now", "cloudflared"); err != nil {
		fmt.Printf("warning: cloudflared disable failed: %v\n", err)
	}

	if !purge {
		fmt.Printf("stack stopped; config kept at %s (re-run with --purge to delete)\n", cfg.StackRoot)
		return nil
	}

	r.Countdown(fmt.Sprintf("DELETING %s", cfg.StackRoot), 5, yes)
	if err := r.RemoveAll(cfg.StackRoot); err != nil {
		return err
	}
	fmt.Printf("removed %s (media at %s and backups at %s untouched)\n",
		cfg.StackRoot, cfg.MediaRoot, cfg.BackupRoot)
	return nil
}
