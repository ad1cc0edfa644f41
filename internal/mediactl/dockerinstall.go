package mediactl

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

const dockerKeyringPath = "/etc/apt/keyrings/docker.asc"
const dockerListPath = "/etc/apt/sources.list.d/docker.list"

// InstallDocker adds Docker's apt repository and installs the engine plus
// the compose plugin. Safe to re-run: an existing working install is left
// alone.
func InstallDocker(r *Runner, cfg Config) error {
	if _, err := exec.LookPath("docker"); err == nil {
		if _, err := r.Capture("docker", "compose", "version"); err == nil {
			fmt.Println("docker and compose plugin already installed, skipping")
			return nil
		}
	}

	osID, codename, err := detectDebianRelease()
	if err != nil {
		return err
	}

	if err := r.Apply("apt-get", "update"); err != nil {
		return err
	}
	if err := r.Apply("apt-get", "install", "-y", "ca-certificates", "curl"); err != nil {
		return err
	}
	if err := r.EnsureDir("/etc/apt/keyrings", 0o755); err != nil {
		return err
	}
	if err := r.Apply("curl", "-fsSL",
		fmt.Sprintf("https://download.docker.com/linux/%s/gpg", osID),
		"-o", dockerKeyringPath); err != nil {
		return err
	}

	arch := "amd64"
	if runtime.GOARCH == "arm64" {
		arch = "arm64"
	}
	repoLine := fmt.Sprintf(
		"deb [arch=%s signed-by=%s] https://download.docker.com/linux/%s %s stable\n",
		arch, dockerKeyringPath, osID, codename)
	if err := r.WriteFile(dockerListPath, []byte(repoLine), 0o644); err != nil {
		return err
	}

	if err := r.Apply("apt-get", "update"); err != nil {
		return err
	}
	if err := r.Apply("apt-get", "install", "-y",
		"docker-ce", "docker-ce-cli", "containerd.io", "docker-compose-plugin"); err != nil {
		return err
	}
	if err := r.Apply("systemctl", "enable", "--now", "docker"); err != nil {
		return err
	}

	// Let the invoking (sudo) user talk to the daemon without sudo.
	if sudoUser := strings.TrimSpace(os.Getenv("SUDO_USER")); sudoUser != "" {
		if err := r.Apply("usermod", "-aG", "docker", sudoUser); err != nil {
			fmt.Printf("warning: could not add %s to docker group: %v\n", sudoUser, err)
		}
	}

	fmt.Println("docker installed")
	return nil
}

// detectDebianRelease reads /etc/os-release for the distro id and codename
// used in the apt repo line.
func detectDebianRelease() (string, string, error) {
	b, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "", "", fmt.Errorf("read /etc/os-release: %w", err)
	}
	vars := map[string]string{}
	for _, line := range strings.Split(string(b), "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		vars[parts[0]] = strings.Trim(parts[1], "\"")
	}

	osID := vars["ID"]
	if osID != "ubuntu" && osID != "debian" {
		return "", "", fmt.Errorf("unsupported distro %q, need ubuntu or debian", osID)
	}
	codename := vars["VERSION_CODENAME"]
	if codename == "" {
		return "", "", fmt.Errorf("no VERSION_CODENAME in /etc/os-release")
	}
	return osID, codename, nil
}
