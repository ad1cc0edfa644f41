package mediactl

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupKeep = 7

// RunBackup archives the stack's config directories (service state, not
// media) into a timestamped tar.gz, prunes old archives, then optionally
// syncs the backup dir to an rclone remote if one is configured.
func RunBackup(r *Runner, cfg Config) error {
	env, err := ReadDotEnv(cfg.EnvPath())
	if err != nil {
		return err
	}

	if err := r.EnsureDir(cfg.BackupRoot, 0o750); err != nil {
		return err
	}

	ts := time.Now().UTC().Format("20060102T150405Z")
	outPath := filepath.Join(cfg.BackupRoot, fmt.Sprintf("mediaserver_%s.tar.gz", ts))

	sources := []string{
		filepath.Join(cfg.StackRoot, "config"),
		cfg.EnvPath(),
		cfg.PhasesPath(),
		filepath.Join(cfg.StackRoot, "compose.yml"),
		filepath.Join(cfg.StackRoot, "cloudflared"),
	}

	if r.DryRun {
		fmt.Printf("dry-run: would archive %s to %s\n", strings.Join(sources, ", "), outPath)
	} else {
		if err := writeTarGz(outPath, cfg.StackRoot, sources); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
	}

	if err := pruneBackups(r, cfg.BackupRoot, backupKeep); err != nil {
		return err
	}

	remote := env["RCLONE_REMOTE"]
	if remote != "" {
		fmt.Printf("syncing backups to %s\n", remote)
		if err := r.Stream("rclone", "sync", cfg.BackupRoot, remote); err != nil {
			return fmt.Errorf("rclone sync failed: %w", err)
		}
	} else {
		fmt.Println("rclone skipped (RCLONE_REMOTE not set)")
	}

	return nil
}

// writeTarGz streams the sources through Go's tar and gzip writers instead
// of shelling out, so paths never pass through a shell.
func writeTarGz(outPath, baseDir string, sources []string) error {
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer outFile.Close()

	gz := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gz)

	for _, src := range sources {
		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			fmt.Printf("skip %s (not present)\n", src)
			continue
		}
		if err != nil {
			return err
		}
		if info.IsDir() {
			err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				if d.IsDir() {
					return nil
				}
				return addTarFile(tw, baseDir, path)
			})
			if err != nil {
				return err
			}
			continue
		}
		if err := addTarFile(tw, baseDir, src); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("tar close: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	return outFile.Sync()
}

func addTarFile(tw *tar.Writer, baseDir, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	return nil
}

// pruneBackups keeps the newest keep archives and deletes the rest.
func pruneBackups(r *Runner, dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var archives []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "mediaserver_") && strings.HasSuffix(name, ".tar.gz") {
			archives = append(archives, name)
		}
	}
	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(archives)))
	for i, name := range archives {
		if i < keep {
			continue
		}
		if err := r.RemoveAll(filepath.Join(dir, name)); err != nil {
			return err
		}
		fmt.Printf("pruned %s\n", name)
	}
	return nil
}
