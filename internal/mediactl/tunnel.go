package mediactl

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// tunnelConfig is the cloudflared config document. Building it as a typed
// struct and marshalling keeps a malformed ingress from ever reaching disk.
type tunnelConfig struct {
	Tunnel          string        `yaml:"tunnel"`
	CredentialsFile string        `yaml:"credentials-file"`
	Ingress         []ingressRule `yaml:"ingress"`
}

type ingressRule struct {
	Hostname string `yaml:"hostname,omitempty"`
	Service  string `yaml:"service"`
}

// SetupTunnel installs cloudflared, authenticates, provisions the named
// tunnel, writes the ingress config and routes DNS for every exposed
// service. Each step is guarded so a re-run converges instead of failing.
func SetupTunnel(r *Runner, cfg Config) error {
	if cfg.Domain == "" {
		return fmt.Errorf("DOMAIN is not set, cannot configure tunnel")
	}

	if err := installCloudflared(r); err != nil {
		return err
	}

	if !fileExists(cloudflaredCertPath()) {
		fmt.Println("opening Cloudflare login, complete it in the browser")
		if err := r.Stream("cloudflared", "tunnel", "login"); err != nil {
			return fmt.Errorf("cloudflared login: %w", err)
		}
	}

	tunnelID := cfg.TunnelID
	if tunnelID == "" {
		id, err := ensureTunnel(r, cfg.TunnelName)
		if err != nil {
			return err
		}
		tunnelID = id
		if !r.DryRun {
			if err := WriteDotEnv(cfg.EnvPath(), map[string]string{"TUNNEL_ID": tunnelID}); err != nil {
				return err
			}
		}
	}

	if err := writeTunnelConfig(r, cfg, tunnelID); err != nil {
		return err
	}

	for _, name := range SortedServiceNames() {
		svc := ServiceCatalog[name]
		if svc.Subdomain == "" {
			continue
		}
		hostname := svc.Subdomain + "." + cfg.Domain
		if err := r.Apply("cloudflared", "tunnel", "route", "dns", "--overwrite-dns", tunnelID, hostname); err != nil {
			return fmt.Errorf("route dns %s: %w", hostname, err)
		}
	}

	if _, err := r.Capture("systemctl", "is-enabled", "cloudflared"); err != nil {
		if err := r.Stream("cloudflared", "--config", tunnelConfigPath(cfg), "service", "install"); err != nil {
			fmt.Printf("warning: cloudflared service install failed: %v\n", err)
		}
	}
	if err := r.Apply("systemctl", "restart", "cloudflared"); err != nil {
		fmt.Printf("warning: cloudflared restart failed: %v\n", err)
	}

	fmt.Printf("tunnel %s configured for *.%s\n", cfg.TunnelName, cfg.Domain)
	return nil
}

func installCloudflared(r *Runner) error {
	if _, err := exec.LookPath("cloudflared"); err == nil {
		return nil
	}
	arch := "amd64"
	if runtime.GOARCH == "arm64" {
		arch = "arm64"
	}
	url := fmt.Sprintf("https://github.com/cloudflare/cloudflared/releases/latest/download/cloudflared-linux-%s.deb", arch)
	deb := "/tmp/cloudflared.deb"
	if err := r.Apply("curl", "-fsSL", url, "-o", deb); err != nil {
		return fmt.Errorf("download cloudflared: %w", err)
	}
	if err := r.Apply("dpkg", "-i", deb); err != nil {
		return fmt.Errorf("install cloudflared: %w", err)
	}
	return nil
}

// ensureTunnel returns the id of the named tunnel, creating it if absent.
func ensureTunnel(r *Runner, name string) (string, error) {
	if id := findTunnelID(r, name); id != "" {
		return id, nil
	}
	if r.DryRun {
		fmt.Printf("dry-run: would create tunnel %s\n", name)
		return "DRY-RUN-TUNNEL-ID", nil
	}
	if err := r.Apply("cloudflared", "tunnel", "create", name); err != nil {
		return "", fmt.Errorf("create tunnel %s: %w", name, err)
	}
	id := findTunnelID(r, name)
	if id == "" {
		return "", fmt.Errorf("tunnel %s created but id not found", name)
	}
	return id, nil
}

func findTunnelID(r *Runner, name string) string {
	out, err := r.Capture("cloudflared", "tunnel", "list", "--name", name, "--output", "json")
	if err != nil {
		return ""
	}
	var tunnels []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &tunnels); err != nil {
		return ""
	}
	for _, t := range tunnels {
		if t.Name == name {
			return t.ID
		}
	}
	return ""
}

func writeTunnelConfig(r *Runner, cfg Config, tunnelID string) error {
	rules := make([]ingressRule, 0, len(ServiceCatalog)+1)
	for _, name := range SortedServiceNames() {
		svc := ServiceCatalog[name]
		if svc.Subdomain == "" {
			continue
		}
		rules = append(rules, ingressRule{
			Hostname: svc.Subdomain + "." + cfg.Domain,
			Service:  fmt.Sprintf("http://localhost:%d", svc.Port),
		})
	}
	// Catch-all must come last; cloudflared rejects the config otherwise.
	rules = append(rules, ingressRule{Service: "http_status:404"})

	doc := tunnelConfig{
		Tunnel:          tunnelID,
		CredentialsFile: filepath.Join(cloudflaredHomeDir(), tunnelID+".json"),
		Ingress:         rules,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	if err := r.EnsureDir(filepath.Dir(tunnelConfigPath(cfg)), 0o750); err != nil {
		return err
	}
	return r.WriteFile(tunnelConfigPath(cfg), out, 0o640)
}

func tunnelConfigPath(cfg Config) string {
	return filepath.Join(cfg.StackRoot, "cloudflared", "config.yml")
}

func cloudflaredHomeDir() string {
	return "/root/.cloudflared"
}

func cloudflaredCertPath() string {
	return filepath.Join(cloudflaredHomeDir(), "cert.pem")
}
