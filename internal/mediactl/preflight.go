package mediactl

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// CheckResult is one preflight check outcome. Hard failures block
// provisioning, soft ones are warnings.
type CheckResult struct {
	Name string
	Hard bool
	Err  error
}

func (c CheckResult) OK() bool { return c.Err == nil }

// RunChecks validates the host without mutating it: platform, tooling,
// network, disk. Shared by the CLI preflight command and the setup wizard.
func RunChecks(r *Runner, cfg Config) []CheckResult {
	type preflightCheck struct {
		name string
		hard bool
		fn   func() error
	}

	checks := []preflightCheck{
		{"linux host", true, func() error {
			if runtime.GOOS != "linux" {
				return fmt.Errorf("unsupported OS %s", runtime.GOOS)
			}
			return nil
		}},
		{"supported arch", true, func() error {
			if runtime.GOARCH != "amd64" && runtime.GOARCH != "arm64" {
				return fmt.Errorf("unsupported arch %s", runtime.GOARCH)
			}
			return nil
		}},
		{"root or docker group", false, func() error {
			if os.Geteuid() == 0 {
				return nil
			}
			out, err := r.Capture("id", "-nG")
			if err == nil && contains(strings.Fields(out), "docker") {
				return nil
			}
			return fmt.Errorf("not root and not in docker group")
		}},
		{"internet reachable", true, func() error {
			conn, err := net.DialTimeout("tcp", "1.1.1.1:443", 5*time.Second)
			if err != nil {
				return err
			}
			return conn.Close()
		}},
		{"dns resolution", true, func() error {
			_, err := net.LookupHost("github.com")
			return err
		}},
		{"docker binary", false, func() error {
			_, err := exec.LookPath("docker")
			return err
		}},
		{"docker compose", false, func() error {
			_, err := r.Capture("docker", "compose", "version")
			return err
		}},
		{"docker daemon", false, func() error {
			_, err := r.Capture("docker", "info")
			return err
		}},
		{"cloudflared binary", false, func() error {
			_, err := exec.LookPath("cloudflared")
			return err
		}},
		{"stack root writable", true, func() error {
			return writableCheck(cfg.StackRoot)
		}},
		{"media root writable", false, func() error {
			return writableCheck(cfg.MediaRoot)
		}},
		{"disk space >= 10GiB on stack root", true, func() error {
			return diskCheck(cfg.StackRoot, 10)
		}},
		{"data drives visible", false, func() error {
			out, err := r.Capture("lsblk", "-dn", "-o", "NAME,TYPE")
			if err != nil {
				return err
			}
			disks := 0
			for _, line := range strings.Split(out, "\n") {
				if strings.HasSuffix(strings.TrimSpace(line), "disk") {
					disks++
				}
			}
			if disks < 2 {
				return fmt.Errorf("%d disks visible, expected system disk plus at least one data disk", disks)
			}
			return nil
		}},
	}

	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, CheckResult{Name: check.name, Hard: check.hard, Err: check.fn()})
	}
	return results
}

// RunPreflight prints the check table and fails if any hard check failed.
func RunPreflight(r *Runner, cfg Config) error {
	fmt.Println("mediactl preflight")
	fmt.Printf("runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	failed := 0
	for _, res := range RunChecks(r, cfg) {
		switch {
		case res.OK():
			fmt.Printf("[ OK ] %s\n", res.Name)
		case res.Hard:
			failed++
			fmt.Printf("[FAIL] %s: %v\n", res.Name, res.Err)
		default:
			fmt.Printf("[WARN] %s: %v\n", res.Name, res.Err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("preflight failed %d check(s)", failed)
	}
	return nil
}

// writableCheck probes whether dir is (or could be) written without creating
// anything. Preflight never mutates the host, so a missing directory passes
// as long as its nearest existing ancestor is writable.
func writableCheck(dir string) error {
	if DirExists(dir) {
		f, err := os.CreateTemp(dir, "mediactl-write-check-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	}

	ancestor := filepath.Dir(dir)
	for !DirExists(ancestor) {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return fmt.Errorf("no existing ancestor of %s", dir)
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, unix.W_OK); err != nil {
		return fmt.Errorf("%s missing and %s not writable: %w", dir, ancestor, err)
	}
	return nil
}

func diskCheck(path string, minGiB uint64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return err
	}
	free := (stat.Bavail * uint64(stat.Bsize)) / (1024 * 1024 * 1024)
	if free < minGiB {
		return fmt.Errorf("free space %dGiB < %dGiB", free, minGiB)
	}
	return nil
}
