package mediactl

import (
	"fmt"
	"os"
	"strings"
)

// DriveSpec pairs a block device from .env with its mount point.
type DriveSpec struct {
	Device     string
	MountPoint string
	Label      string
}

// DrivesFromEnv reads MEDIA_DRIVE and DOWNLOAD_DRIVE. Both are optional: a
// host with a single disk just mounts nothing and keeps everything on the
// system drive.
func DrivesFromEnv(cfg Config, env map[string]string) []DriveSpec {
	var drives []DriveSpec
	if dev := strings.TrimSpace(env["MEDIA_DRIVE"]); dev != "" {
		drives = append(drives, DriveSpec{Device: dev, MountPoint: cfg.MediaRoot, Label: "media"})
	}
	if dev := strings.TrimSpace(env["DOWNLOAD_DRIVE"]); dev != "" {
		drives = append(drives, DriveSpec{Device: dev, MountPoint: cfg.DownloadRoot, Label: "downloads"})
	}
	return drives
}

// SetupDrives partitions, formats, mounts and persists each data drive.
// Formatting an already-formatted device requires --force and survives a
// countdown the operator can interrupt.
func SetupDrives(r *Runner, cfg Config, env map[string]string, force, yes bool) error {
	drives := DrivesFromEnv(cfg, env)
	if len(drives) == 0 {
		fmt.Println("no MEDIA_DRIVE/DOWNLOAD_DRIVE configured, skipping drive setup")
		return nil
	}

	for _, drive := range drives {
		if err := setupDrive(r, drive, force, yes); err != nil {
			return fmt.Errorf("drive %s: %w", drive.Device, err)
		}
	}

	if err := r.Apply("mount", "-a"); err != nil {
		return fmt.Errorf("mount -a: %w", err)
	}
	return nil
}

func setupDrive(r *Runner, drive DriveSpec, force, yes bool) error {
	if isMounted(r, drive.MountPoint) {
		fmt.Printf("%s already mounted at %s, skipping\n", drive.Device, drive.MountPoint)
		return nil
	}

	partition := partitionName(drive.Device)
	if hasFilesystem(r, partition) && !force {
		return fmt.Errorf("%s already has a filesystem, re-run with --force to reformat", partition)
	}

	r.Countdown(fmt.Sprintf("FORMATTING %s (all data will be lost)", drive.Device), 5, yes)

	if err := r.Apply("wipefs", "-a", drive.Device); err != nil {
		return err
	}
	if err := r.Apply("parted", "-s", drive.Device, "mklabel", "gpt"); err != nil {
		return err
	}
	if err := r.Apply("parted", "-s", drive.Device, "mkpart", "primary", "ext4", "0%", "100%"); err != nil {
		return err
	}
	if err := r.Apply("mkfs.ext4", "-F", "-L", drive.Label, partition); err != nil {
		return err
	}

	if err := r.EnsureDir(drive.MountPoint, 0o755); err != nil {
		return err
	}

	partuuid, err := lookupPartUUID(r, partition)
	if err != nil {
		return err
	}
	return persistFstab(r, partuuid, drive.MountPoint)
}

// partitionName maps /dev/sdb -> /dev/sdb1 and /dev/nvme0n1 -> /dev/nvme0n1p1.
func partitionName(device string) string {
	last := device[len(device)-1]
	if last >= '0' && last <= '9' {
		return device + "p1"
	}
	return device + "1"
}

func isMounted(r *Runner, mountPoint string) bool {
	out, err := r.Capture("findmnt", "-n", mountPoint)
	return err == nil && strings.TrimSpace(out) != ""
}

func hasFilesystem(r *Runner, partition string) bool {
	out, err := r.Capture("blkid", "-o", "value", "-s", "TYPE", partition)
	return err == nil && strings.TrimSpace(out) != ""
}

func lookupPartUUID(r *Runner, partition string) (string, error) {
	if r.DryRun {
		return "DRY-RUN-PARTUUID", nil
	}
	out, err := r.Capture("blkid", "-o", "value", "-s", "PARTUUID", partition)
	if err != nil {
		return "", fmt.Errorf("blkid %s: %w", partition, err)
	}
	partuuid := strings.TrimSpace(out)
	if partuuid == "" {
		return "", fmt.Errorf("no PARTUUID for %s", partition)
	}
	return partuuid, nil
}

// persistFstab appends an fstab entry keyed by PARTUUID unless one for the
// mount point already exists.
func persistFstab(r *Runner, partuuid, mountPoint string) error {
	const fstab = "/etc/fstab"
	entry := FstabEntry(partuuid, mountPoint)

	current, err := os.ReadFile(fstab)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if fstabHasMount(string(current), mountPoint) {
		fmt.Printf("fstab entry for %s already present, skipping\n", mountPoint)
		return nil
	}

	updated := strings.TrimRight(string(current), "\n") + "\n" + entry + "\n"
	return r.WriteFile(fstab, []byte(updated), 0o644)
}

func FstabEntry(partuuid, mountPoint string) string {
	return fmt.Sprintf("PARTUUID=%s %s ext4 defaults,noatime 0 2", partuuid, mountPoint)
}

func fstabHasMount(content, mountPoint string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == mountPoint {
			return true
		}
	}
	return false
}
