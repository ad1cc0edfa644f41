package mediactl

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner wraps external command execution so --dry-run can turn every
// mutating call into a printed intent. Read-only captures always execute;
// anything that changes host state goes through Stream, Apply or the
// filesystem helpers.
type Runner struct {
	DryRun bool
}

// Capture runs a read-only command and returns combined output.
func (r *Runner) Capture(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Stream runs a mutating command with stdout/stderr attached to the
// operator's terminal. Under dry-run it prints the command and does nothing.
func (r *Runner) Stream(name string, args ...string) error {
	if r.DryRun {
		fmt.Printf("dry-run: would run %s %s\n", name, strings.Join(args, " "))
		return nil
	}
	log.Debug("exec", zap.String("cmd", name), zap.Strings("args", args))
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Apply runs a mutating command quietly, returning combined output on error.
func (r *Runner) Apply(name string, args ...string) error {
	if r.DryRun {
		fmt.Printf("dry-run: would run %s %s\n", name, strings.Join(args, " "))
		return nil
	}
	log.Debug("exec", zap.String("cmd", name), zap.Strings("args", args))
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ApplyStdin runs a mutating command with the given stdin.
func (r *Runner) ApplyStdin(stdin string, name string, args ...string) error {
	if r.DryRun {
		fmt.Printf("dry-run: would run %s %s with %d bytes on stdin\n", name, strings.Join(args, " "), len(stdin))
		return nil
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (r *Runner) WriteFile(path string, data []byte, mode os.FileMode) error {
	if r.DryRun {
		fmt.Printf("dry-run: would write %s (%d bytes)\n", path, len(data))
		return nil
	}
	return os.WriteFile(path, data, mode)
}

func (r *Runner) EnsureDir(path string, mode os.FileMode) error {
	if r.DryRun {
		if !DirExists(path) {
			fmt.Printf("dry-run: would create %s\n", path)
		}
		return nil
	}
	return os.MkdirAll(path, mode)
}

func (r *Runner) RemoveAll(path string) error {
	if r.DryRun {
		fmt.Printf("dry-run: would remove %s\n", path)
		return nil
	}
	return os.RemoveAll(path)
}

// Countdown gives the operator a window to interrupt a destructive step.
// Skipped under --yes and under dry-run.
func (r *Runner) Countdown(action string, seconds int, skip bool) {
	if r.DryRun || skip {
		return
	}
	fmt.Printf("%s in %d seconds, ctrl-c to abort", action, seconds)
	for i := seconds; i > 0; i-- {
		fmt.Printf(" %d", i)
		time.Sleep(time.Second)
	}
	fmt.Println()
}
