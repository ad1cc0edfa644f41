package mediactl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InstallPhase brings one phase from absent to present. Idempotent: dirs and
// configs are only created when missing, cron entries are deduplicated by
// marker, compose up converges. The installed set is persisted only after
// everything succeeded.
func InstallPhase(r *Runner, cfg Config, phase Phase, force bool) error {
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}

	if missing := MissingPredecessors(phase, installed); len(missing) > 0 && !force {
		return fmt.Errorf("phase %s requires %s to be installed first (use --force to override)",
			phase.Name, strings.Join(missing, ", "))
	}

	for _, dir := range phase.DataDirs {
		if err := r.EnsureDir(filepath.Join(cfg.StackRoot, "config", dir), 0o750); err != nil {
			return err
		}
	}

	data := cfg.RenderData()
	for _, conf := range phase.Configs {
		target := filepath.Join(cfg.StackRoot, conf.Target)
		if fileExists(target) {
			continue
		}
		tplPath := filepath.Join(findTemplatesDir(), "phases", phase.Name, conf.Template)
		text, err := renderFile(tplPath, data)
		if err != nil {
			return fmt.Errorf("render %s config %s: %w", phase.Name, conf.Template, err)
		}
		if err := r.EnsureDir(filepath.Dir(target), 0o750); err != nil {
			return err
		}
		if err := r.WriteFile(target, []byte(text), conf.Mode); err != nil {
			return err
		}
	}

	next := installed
	if !contains(next, phase.Name) {
		next = append(next, phase.Name)
	}

	if !r.DryRun {
		if err := WriteCompose(cfg, next); err != nil {
			return err
		}
		if err := SyncPhaseAssets(cfg, next); err != nil {
			return err
		}
	}
	if err := ComposeUp(r, cfg, next); err != nil {
		return err
	}
	if err := InstallCronJobs(r, phase); err != nil {
		return err
	}

	if r.DryRun {
		fmt.Printf("dry-run: would record phase %s as installed\n", phase.Name)
		return nil
	}
	if err := WriteInstalledPhases(cfg, next); err != nil {
		return err
	}
	fmt.Printf("phase %d (%s) installed\n", phase.Number, phase.Name)
	return nil
}

// VerifyPhase is a pure read: it counts pass/fail over the phase's expected
// artifacts without creating or repairing anything.
func VerifyPhase(r *Runner, cfg Config, phase Phase) (HealthReport, error) {
	var rep HealthReport
	add := func(name, state, detail string) {
		rep.Results = append(rep.Results, HealthResult{
			Check:  HealthCheck{Name: name},
			State:  state,
			Detail: detail,
		})
		switch state {
		case StatePass:
			rep.Pass++
		case StateWarn:
			rep.Warn++
		default:
			rep.Fail++
		}
	}

	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return rep, err
	}
	if contains(installed, phase.Name) {
		add("recorded installed", StatePass, "present in phases.yml")
	} else {
		add("recorded installed", StateFail, "not in phases.yml")
	}

	for _, dir := range phase.DataDirs {
		path := filepath.Join(cfg.StackRoot, "config", dir)
		if DirExists(path) {
			add("dir "+dir, StatePass, path)
		} else {
			add("dir "+dir, StateFail, path+" missing")
		}
	}

	for _, conf := range phase.Configs {
		target := filepath.Join(cfg.StackRoot, conf.Target)
		if fileExists(target) {
			add("config "+conf.Target, StatePass, "present")
		} else {
			add("config "+conf.Target, StateFail, "missing")
		}
	}

	for _, container := range phase.Containers {
		res := checkContainer(r, HealthCheck{Name: "container/" + container, Container: container})
		add(res.Check.Name, res.State, res.Detail)
	}

	want := len(phase.CronJobs)
	got := CronJobsInstalled(r, phase)
	switch {
	case want == 0:
		// nothing scheduled for this phase
	case got == want:
		add("cron entries", StatePass, fmt.Sprintf("%d of %d present", got, want))
	case got > 0:
		add("cron entries", StateWarn, fmt.Sprintf("%d of %d present", got, want))
	default:
		add("cron entries", StateFail, fmt.Sprintf("0 of %d present", want))
	}

	return rep, nil
}

// RollbackPhase removes what InstallPhase created, scoped strictly to this
// phase: its containers, its cron entries and (only with purge) its config
// dirs. It refuses while an installed later phase depends on this one,
// unless forced.
func RollbackPhase(r *Runner, cfg Config, phase Phase, force, purge, yes bool) error {
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}

	if dependents := InstalledDependents(phase, installed); len(dependents) > 0 {
		if !force {
			return fmt.Errorf("phase %s is required by installed phase(s) %s, roll those back first (or use --force)",
				phase.Name, strings.Join(dependents, ", "))
		}
		fmt.Printf("warning: forcing rollback of %s while %s still depend on it\n",
			phase.Name, strings.Join(dependents, ", "))
	}

	remaining := make([]string, 0, len(installed))
	for _, name := range installed {
		if name != phase.Name {
			remaining = append(remaining, name)
		}
	}

	// Stop this phase's containers before regenerating compose without them.
	for _, container := range phase.Containers {
		if !ComposeServiceRunning(r, cfg, container) {
			continue
		}
		args := append(ComposeBaseArgs(cfg), "--profile", phase.Name, "rm", "-sf", container)
		if err := r.Stream("docker", args...); err != nil {
			return fmt.Errorf("remove container %s: %w", container, err)
		}
	}

	if err := RemoveCronJobs(r, phase); err != nil {
		return err
	}

	if !r.DryRun {
		if err := WriteCompose(cfg, remaining); err != nil {
			return err
		}
	}

	if purge {
		r.Countdown(fmt.Sprintf("PURGING %s config data", phase.Name), 5, yes)
		for _, dir := range phase.DataDirs {
			if err := r.RemoveAll(filepath.Join(cfg.StackRoot, "config", dir)); err != nil {
				return err
			}
		}
		for _, conf := range phase.Configs {
			target := filepath.Join(cfg.StackRoot, conf.Target)
			if err := r.RemoveAll(target); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}

	if r.DryRun {
		fmt.Printf("dry-run: would record phase %s as removed\n", phase.Name)
		return nil
	}
	if err := WriteInstalledPhases(cfg, remaining); err != nil {
		return err
	}
	fmt.Printf("phase %d (%s) rolled back\n", phase.Number, phase.Name)
	return nil
}

// ShowPhases prints the catalog with install state.
func ShowPhases(cfg Config) error {
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}
	for _, phase := range SortedPhases() {
		state := "absent"
		if contains(installed, phase.Name) {
			state = "installed"
		}
		requires := "-"
		if len(phase.Requires) > 0 {
			requires = strings.Join(phase.Requires, ", ")
		}
		fmt.Printf("%d  %-12s %-9s requires: %-12s %s\n",
			phase.Number, phase.Name, state, requires, phase.Description)
	}
	return nil
}
