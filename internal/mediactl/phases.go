package mediactl

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CronJob is one crontab entry owned by a phase. Entries are tagged with a
// marker comment so re-install never duplicates a line and rollback removes
// only its own.
type CronJob struct {
	Schedule string
	Command  string
}

// Phase is an optional, independently installable bundle of containers and
// cron jobs layered on the base stack. Requires lists declared predecessors:
// install refuses to run before them, rollback refuses to run while a
// dependent phase is still installed (unless forced).
type Phase struct {
	Name        string
	Number      int
	Description string
	Requires    []string
	Containers  []string
	CronJobs    []CronJob
	DataDirs    []string
	Configs     []ConfigFile
}

// ConfigFile maps a template under templates/phases/<phase>/ to its rendered
// target relative to the stack root.
type ConfigFile struct {
	Template string
	Target   string
	Mode     os.FileMode
}

var PhaseCatalog = map[string]Phase{
	"dashboard": {
		Name:        "dashboard",
		Number:      1,
		Description: "Homarr dashboard, Bazarr subtitles, LAN reverse proxy",
		Requires:    nil,
		Containers:  []string{"homarr", "bazarr", "nginx"},
		DataDirs:    []string{"homarr", "bazarr", "nginx"},
		Configs: []ConfigFile{
			{Template: "nginx.conf", Target: "nginx/nginx.conf", Mode: 0o640},
		},
	},
	"monitoring": {
		Name:        "monitoring",
		Number:      2,
		Description: "Uptime Kuma, health-check cron, webhook notifier",
		Requires:    []string{"dashboard"},
		Containers:  []string{"uptime-kuma"},
		DataDirs:    []string{"uptime-kuma"},
		CronJobs: []CronJob{
			{Schedule: "*/5 * * * *", Command: "mediactl health --quiet"},
		},
	},
	"maintenance": {
		Name:        "maintenance",
		Number:      3,
		Description: "Nightly backups, Watchtower auto-update",
		Requires:    []string{"monitoring"},
		Containers:  []string{"watchtower"},
		CronJobs: []CronJob{
			{Schedule: "30 3 * * *", Command: "mediactl backup"},
			{Schedule: "0 5 * * 1", Command: "mediactl update"},
		},
	},
}

type phasesFile struct {
	Installed []string `yaml:"installed"`
}

// LookupPhase accepts a phase name or its number.
func LookupPhase(key string) (Phase, error) {
	key = strings.TrimSpace(key)
	if p, ok := PhaseCatalog[key]; ok {
		return p, nil
	}
	for _, p := range PhaseCatalog {
		if fmt.Sprintf("%d", p.Number) == key {
			return p, nil
		}
	}
	return Phase{}, fmt.Errorf("unknown phase: %s", key)
}

func SortedPhases() []Phase {
	phases := make([]Phase, 0, len(PhaseCatalog))
	for _, p := range PhaseCatalog {
		phases = append(phases, p)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i].Number < phases[j].Number })
	return phases
}

// LoadInstalledPhases reads the declarative installed set. A missing file
// means no phases installed.
func LoadInstalledPhases(cfg Config) ([]string, error) {
	b, err := os.ReadFile(cfg.PhasesPath())
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var f phasesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", cfg.PhasesPath(), err)
	}
	installed := make([]string, 0, len(f.Installed))
	for _, name := range f.Installed {
		if _, ok := PhaseCatalog[name]; ok {
			installed = append(installed, name)
		}
	}
	sort.Strings(installed)
	return installed, nil
}

// WriteInstalledPhases replaces the installed set via temp file and rename,
// so a crash mid-write never leaves a truncated phases.yml.
func WriteInstalledPhases(cfg Config, installed []string) error {
	sort.Strings(installed)
	out, err := yaml.Marshal(phasesFile{Installed: installed})
	if err != nil {
		return err
	}
	tmp := cfg.PhasesPath() + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := f.Write(out); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, cfg.PhasesPath())
}

// MissingPredecessors returns declared predecessors of phase that are not in
// the installed set.
func MissingPredecessors(phase Phase, installed []string) []string {
	var missing []string
	for _, req := range phase.Requires {
		if !contains(installed, req) {
			missing = append(missing, req)
		}
	}
	return missing
}

// InstalledDependents returns installed phases that declare phase as a
// predecessor. Rollback refuses while this is non-empty, unless forced.
func InstalledDependents(phase Phase, installed []string) []string {
	var dependents []string
	for _, name := range installed {
		p, ok := PhaseCatalog[name]
		if !ok {
			continue
		}
		if contains(p.Requires, phase.Name) {
			dependents = append(dependents, name)
		}
	}
	sort.Strings(dependents)
	return dependents
}
