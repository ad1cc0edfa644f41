package mediactl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

type RenderData struct {
	Domain       string
	Timezone     string
	PUID         string
	PGID         string
	NetworkName  string
	StackRoot    string
	MediaRoot    string
	DownloadRoot string
	BackupRoot   string
	TunnelID     string
}

func renderFile(path string, data RenderData) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return renderString(string(content), data)
}

// renderString refuses to render with a missing key so an unset variable is
// a hard error, never an empty substitution.
func renderString(content string, data RenderData) (string, error) {
	tmpl, err := template.New("").Option("missingkey=error").Parse(content)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func findTemplatesDir() string {
	if custom := strings.TrimSpace(os.Getenv("MEDIACTL_TEMPLATES")); custom != "" {
		return custom
	}

	exe, err := os.Executable()
	if err == nil {
		binDir := filepath.Dir(exe)
		candidates := []string{
			filepath.Join(binDir, "..", "templates"),
			filepath.Join(binDir, "templates"),
		}
		for _, c := range candidates {
			if DirExists(c) {
				return c
			}
		}
	}

	cwd, err := os.Getwd()
	if err == nil {
		c := filepath.Join(cwd, "templates")
		if DirExists(c) {
			return c
		}
	}

	home, _ := os.UserHomeDir()
	fallbacks := []string{
		"/usr/local/share/mediactl/templates",
		filepath.Join(home, ".mediactl", "repo", "templates"),
	}
	for _, c := range fallbacks {
		if DirExists(c) {
			return c
		}
	}
	return "templates"
}
