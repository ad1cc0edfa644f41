package mediactl

import (
	"fmt"
	"sort"
	"strings"
)

type ServiceInfo struct {
	Name        string
	Description string
	Port        int
	HealthPath  string
	// Subdomain exposed through the tunnel; empty means internal-only.
	Subdomain string
}

// ServiceCatalog is the base stack. Phase containers are declared on their
// phase in phases.go.
var ServiceCatalog = map[string]ServiceInfo{
	"jellyfin": {
		Name:        "jellyfin",
		Description: "Media streaming server",
		Port:        8096,
		HealthPath:  "/health",
		Subdomain:   "watch",
	},
	"sonarr": {
		Name:        "sonarr",
		Description: "TV series management",
		Port:        8989,
		HealthPath:  "/ping",
		Subdomain:   "sonarr",
	},
	"radarr": {
		Name:        "radarr",
		Description: "Movie management",
		Port:        7878,
		HealthPath:  "/ping",
		Subdomain:   "radarr",
	},
	"prowlarr": {
		Name:        "prowlarr",
		Description: "Indexer management",
		Port:        9696,
		HealthPath:  "/ping",
		Subdomain:   "prowlarr",
	},
	"jellyseerr": {
		Name:        "jellyseerr",
		Description: "Media request frontend",
		Port:        5055,
		HealthPath:  "/api/v1/status",
		Subdomain:   "requests",
	},
	"rdtclient": {
		Name:        "rdtclient",
		Description: "Debrid download client",
		Port:        6500,
		HealthPath:  "/",
		Subdomain:   "",
	},
	"flaresolverr": {
		Name:        "flaresolverr",
		Description: "Cloudflare challenge solver for indexers",
		Port:        8191,
		HealthPath:  "/health",
		Subdomain:   "",
	},
}

func SortedServiceNames() []string {
	names := make([]string, 0, len(ServiceCatalog))
	for name := range ServiceCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AccessURLs lists the operator-facing URLs for the running stack.
func AccessURLs(cfg Config) []string {
	var urls []string
	for _, name := range SortedServiceNames() {
		svc := ServiceCatalog[name]
		local := fmt.Sprintf("http://localhost:%d", svc.Port)
		if svc.Subdomain != "" && cfg.Domain != "" {
			urls = append(urls, fmt.Sprintf("%-12s %s  https://%s.%s", svc.Name, local, svc.Subdomain, cfg.Domain))
		} else {
			urls = append(urls, fmt.Sprintf("%-12s %s", svc.Name, local))
		}
	}
	return urls
}

func servicePorts(name string) string {
	svc, ok := ServiceCatalog[name]
	if !ok {
		return "-"
	}
	return strings.TrimSpace(fmt.Sprintf("127.0.0.1:%d", svc.Port))
}
