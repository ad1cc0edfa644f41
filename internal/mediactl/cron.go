package mediactl

import (
	"fmt"
	"strings"
)

const cronMarkerPrefix = "# mediactl:"

func cronMarker(phase string) string {
	return cronMarkerPrefix + phase
}

// readCrontab returns the current user crontab lines. An empty crontab is
// not an error ("no crontab for user" exits non-zero).
func readCrontab(r *Runner) []string {
	out, err := r.Capture("crontab", "-l")
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// InstallCronJobs writes the phase's cron entries, replacing any existing
// entries carrying the phase marker. Re-running is idempotent: strip then
// re-append, so duplicates cannot accumulate.
func InstallCronJobs(r *Runner, phase Phase) error {
	if len(phase.CronJobs) == 0 {
		return nil
	}
	lines := removeMarkedLines(readCrontab(r), cronMarker(phase.Name))
	for _, job := range phase.CronJobs {
		lines = append(lines, fmt.Sprintf("%s %s %s", job.Schedule, job.Command, cronMarker(phase.Name)))
	}
	return writeCrontab(r, lines)
}

// RemoveCronJobs drops only the entries tagged with this phase's marker.
func RemoveCronJobs(r *Runner, phase Phase) error {
	current := readCrontab(r)
	filtered := removeMarkedLines(current, cronMarker(phase.Name))
	if len(filtered) == len(current) {
		return nil
	}
	return writeCrontab(r, filtered)
}

// CronJobsInstalled reports how many of the phase's entries are present.
func CronJobsInstalled(r *Runner, phase Phase) int {
	count := 0
	marker := cronMarker(phase.Name)
	for _, line := range readCrontab(r) {
		if strings.HasSuffix(strings.TrimSpace(line), marker) {
			count++
		}
	}
	return count
}

func removeMarkedLines(lines []string, marker string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasSuffix(strings.TrimSpace(line), marker) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func writeCrontab(r *Runner, lines []string) error {
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	return r.ApplyStdin(content, "crontab", "-")
}
