package mediactl

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	defaultStackRoot    = "/srv/mediaserver"
	defaultMediaRoot    = "/mnt/media"
	defaultDownloadRoot = "/mnt/downloads"
	defaultBackupRoot   = "/srv/backups"
)

// RequiredEnvKeys must be present and non-empty in .env before any command
// that touches the stack runs. A missing key fails with the key named.
var RequiredEnvKeys = []string{"PUID", "PGID", "TZ", "DOMAIN"}

type Config struct {
	StackRoot    string
	MediaRoot    string
	DownloadRoot string
	BackupRoot   string
	Domain       string
	Timezone     string
	PUID         string
	PGID         string
	TunnelName   string
	TunnelID     string
}

func (cfg Config) EnvPath() string    { return filepath.Join(cfg.StackRoot, ".env") }
func (cfg Config) PhasesPath() string { return filepath.Join(cfg.StackRoot, "phases.yml") }
func (cfg Config) StatePath() string  { return filepath.Join(cfg.StackRoot, "state", "health.json") }

func (cfg Config) RenderData() RenderData {
	return RenderData{
		Domain:       cfg.Domain,
		Timezone:     cfg.Timezone,
		PUID:         cfg.PUID,
		PGID:         cfg.PGID,
		NetworkName:  "media_net",
		StackRoot:    cfg.StackRoot,
		MediaRoot:    cfg.MediaRoot,
		DownloadRoot: cfg.DownloadRoot,
		BackupRoot:   cfg.BackupRoot,
		TunnelID:     cfg.TunnelID,
	}
}

func LoadConfig() (Config, error) {
	cfg := Config{
		StackRoot:    GetStackRoot(),
		MediaRoot:    getMediaRoot(),
		DownloadRoot: getDownloadRoot(),
		BackupRoot:   getBackupRoot(),
		TunnelName:   "mediaserver",
	}
	return cfg, nil
}

// HydrateFromDotEnv fills config fields from the stack's .env file. Fields
// already set (from flags) win.
func HydrateFromDotEnv(cfg *Config) error {
	m, err := ReadDotEnv(cfg.EnvPath())
	if err != nil {
		return err
	}
	if cfg.Domain == "" {
		cfg.Domain = m["DOMAIN"]
	}
	if cfg.Timezone == "" {
		cfg.Timezone = m["TZ"]
	}
	if cfg.PUID == "" {
		cfg.PUID = m["PUID"]
	}
	if cfg.PGID == "" {
		cfg.PGID = m["PGID"]
	}
	if cfg.TunnelID == "" {
		cfg.TunnelID = m["TUNNEL_ID"]
	}
	if v := m["TUNNEL_NAME"]; v != "" {
		cfg.TunnelName = v
	}
	return nil
}

// ValidateEnv checks that every required key is present and non-empty,
// naming each missing key rather than proceeding with an empty substitution.
func ValidateEnv(vars map[string]string) error {
	var missing []string
	for _, key := range RequiredEnvKeys {
		if strings.TrimSpace(vars[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required .env keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

func ReadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	vars := map[string]string{}
	s := bufio.NewScanner(file)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		k := strings.TrimSpace(parts[0])
		v := strings.Trim(strings.TrimSpace(parts[1]), "\"")
		vars[k] = v
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

func WriteDotEnv(path string, vars map[string]string) error {
	// Read original file to preserve comments and ordering
	file, err := os.Open(path)
	if err != nil {
		// File doesn't exist, write all vars
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			b.WriteString(k + "=" + vars[k] + "\n")
		}
		return os.WriteFile(path, []byte(b.String()), 0o640)
	}
	defer file.Close()

	written := map[string]bool{}
	var lines []string
	s := bufio.NewScanner(file)
	for s.Scan() {
		line := s.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			lines = append(lines, line)
			continue
		}
		parts := strings.SplitN(trimmed, "=", 2)
		if len(parts) != 2 {
			lines = append(lines, line)
			continue
		}
		key := strings.TrimSpace(parts[0])
		if newVal, ok := vars[key]; ok {
			lines = append(lines, key+"="+newVal)
			written[key] = true
		} else {
			lines = append(lines, line)
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	file.Close()

	// Append any new keys that weren't in original file
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if !written[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, k+"="+vars[k])
	}

	content := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0o640)
}

func GetStackRoot() string {
	if v := strings.TrimSpace(os.Getenv("MEDIACTL_STACK_ROOT")); v != "" {
		return v
	}
	return defaultStackRoot
}

func getMediaRoot() string {
	if v := strings.TrimSpace(os.Getenv("MEDIACTL_MEDIA_ROOT")); v != "" {
		return v
	}
	return defaultMediaRoot
}

func getDownloadRoot() string {
	if v := strings.TrimSpace(os.Getenv("MEDIACTL_DOWNLOAD_ROOT")); v != "" {
		return v
	}
	return defaultDownloadRoot
}

func getBackupRoot() string {
	if v := strings.TrimSpace(os.Getenv("MEDIACTL_BACKUP_ROOT")); v != "" {
		return v
	}
	return defaultBackupRoot
}
