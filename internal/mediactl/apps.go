package mediactl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// arrClient talks to a Sonarr/Radarr/Prowlarr v3 API.
type arrClient struct {
	name    string
	baseURL string
	apiKey  string
	hc      *http.Client
}

func newArrClient(name, baseURL, apiKey string) *arrClient {
	return &arrClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *arrClient) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v3/"+endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", c.name, method, endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s %s: status %d", c.name, method, endpoint, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s decode %s: %w", c.name, endpoint, err)
		}
	}
	return nil
}

// waitReady polls system/status until the app answers or the deadline hits.
func (c *arrClient) waitReady(ctx context.Context, timeout time.Duration) error {
	fmt.Printf("waiting for %s to be ready...\n", c.name)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := c.do(ctx, http.MethodGet, "system/status", nil, nil); err == nil {
			fmt.Printf("%s is ready\n", c.name)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("%s not ready after %s", c.name, timeout)
}

type arrField struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ensureDownloadClient registers RdtClient (speaking the qBittorrent
// protocol) as a download client if it is not already there.
func (c *arrClient) ensureDownloadClient(ctx context.Context, rdtURL, category string) error {
	var existing []struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, "downloadclient", nil, &existing); err != nil {
		return err
	}
	for _, client := range existing {
		if client.Name == "RdtClient" {
			fmt.Printf("%s: download client already configured\n", c.name)
			return nil
		}
	}

	host, port, err := splitHostPort(rdtURL)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"enable":                   true,
		"protocol":                 "torrent",
		"priority":                 1,
		"removeCompletedDownloads": true,
		"removeFailedDownloads":    true,
		"name":                     "RdtClient",
		"implementationName":       "qBittorrent",
		"implementation":           "QBittorrent",
		"configContract":           "QBittorrentSettings",
		"tags":                     []int{},
		"fields": []arrField{
			{Name: "host", Value: host},
			{Name: "port", Value: port},
			{Name: "useSsl", Value: false},
			{Name: "urlBase", Value: ""},
			{Name: "username", Value: ""},
			{Name: "password", Value: ""},
			{Name: "category", Value: category},
			{Name: "recentPriority", Value: 0},
			{Name: "olderPriority", Value: 0},
			{Name: "initialState", Value: 0},
			{Name: "sequentialOrder", Value: false},
			{Name: "firstAndLast", Value: false},
		},
	}
	if err := c.do(ctx, http.MethodPost, "downloadclient", payload, nil); err != nil {
		return err
	}
	fmt.Printf("%s: download client added\n", c.name)
	return nil
}

func (c *arrClient) ensureRootFolder(ctx context.Context, path string) error {
	var existing []struct {
		Path string `json:"path"`
	}
	if err := c.do(ctx, http.MethodGet, "rootfolder", nil, &existing); err != nil {
		return err
	}
	for _, folder := range existing {
		if folder.Path == path {
			fmt.Printf("%s: root folder already configured: %s\n", c.name, path)
			return nil
		}
	}
	if err := c.do(ctx, http.MethodPost, "rootfolder", map[string]string{"path": path}, nil); err != nil {
		return err
	}
	fmt.Printf("%s: root folder added: %s\n", c.name, path)
	return nil
}

func (c *arrClient) ensureRemotePathMapping(ctx context.Context, host, remotePath, localPath string) error {
	var existing []struct {
		Host string `json:"host"`
	}
	if err := c.do(ctx, http.MethodGet, "remotePathMapping", nil, &existing); err != nil {
		return err
	}
	for _, mapping := range existing {
		if mapping.Host == host {
			fmt.Printf("%s: remote path mapping already configured\n", c.name)
			return nil
		}
	}
	payload := map[string]string{
		"host":       host,
		"remotePath": remotePath,
		"localPath":  localPath,
	}
	if err := c.do(ctx, http.MethodPost, "remotePathMapping", payload, nil); err != nil {
		return err
	}
	fmt.Printf("%s: remote path mapping added\n", c.name)
	return nil
}

func splitHostPort(rawURL string) (string, int, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(rawURL, "http://"), "https://")
	host, portStr, ok := strings.Cut(trimmed, ":")
	if !ok {
		return "", 0, fmt.Errorf("no port in %q", rawURL)
	}
	port, err := strconv.Atoi(strings.TrimRight(portStr, "/"))
	if err != nil {
		return "", 0, fmt.Errorf("bad port in %q: %w", rawURL, err)
	}
	return host, port, nil
}

type appTarget struct {
	name       string
	envKey     string
	url        string
	category   string
	rootFolder string
}

var appTargets = []appTarget{
	{name: "sonarr", envKey: "SONARR_API_KEY", url: "http://localhost:8989", category: "sonarr", rootFolder: "/tv"},
	{name: "radarr", envKey: "RADARR_API_KEY", url: "http://localhost:7878", category: "radarr", rootFolder: "/movies"},
	{name: "prowlarr", envKey: "PROWLARR_API_KEY", url: "http://localhost:9696"},
}

const rdtClientURL = "http://rdtclient:6500"

// ConfigureApps wires Sonarr/Radarr to RdtClient and their root folders via
// their APIs, and confirms Prowlarr is reachable. Each step checks for an
// existing resource first, so re-runs converge.
func ConfigureApps(ctx context.Context, cfg Config, only string, dryRun bool) error {
	env, err := ReadDotEnv(cfg.EnvPath())
	if err != nil {
		return err
	}

	ok := true
	for _, target := range appTargets {
		if only != "" && only != "all" && only != target.name {
			continue
		}
		fmt.Printf("=== configuring %s ===\n", target.name)

		apiKey := env[target.envKey]
		if apiKey == "" {
			fmt.Printf("%s not set in .env, skipping %s (find it in the UI under Settings > General)\n",
				target.envKey, target.name)
			ok = false
			continue
		}

		client := newArrClient(target.name, target.url, apiKey)
		if err := client.waitReady(ctx, time.Minute); err != nil {
			fmt.Printf("%v\n", err)
			ok = false
			continue
		}

		if dryRun {
			fmt.Printf("dry-run: would configure %s\n", target.name)
			continue
		}

		if target.name == "prowlarr" {
			fmt.Println("prowlarr is ready; add indexers and app sync in its UI")
			continue
		}

		if err := client.ensureDownloadClient(ctx, rdtClientURL, target.category); err != nil {
			fmt.Printf("%v\n", err)
			ok = false
		}
		if err := client.ensureRootFolder(ctx, target.rootFolder); err != nil {
			fmt.Printf("%v\n", err)
			ok = false
		}
		if err := client.ensureRemotePathMapping(ctx, "rdtclient", "/data/downloads", "/data/downloads"); err != nil {
			fmt.Printf("%v\n", err)
			ok = false
		}
	}

	if !ok {
		return fmt.Errorf("app configuration completed with errors")
	}
	fmt.Println("app configuration complete")
	return nil
}
