package mediactl

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteTunnelConfig(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir(), Domain: "example.com"}
	r := &Runner{}

	require.NoError(t, writeTunnelConfig(r, cfg, "tunnel-id-123"))

	raw, err := os.ReadFile(tunnelConfigPath(cfg))
	require.NoError(t, err)

	var doc tunnelConfig
	require.NoError(t, yaml.Unmarshal(raw, &doc))

	assert.Equal(t, "tunnel-id-123", doc.Tunnel)
	assert.Equal(t, "/root/.cloudflared/tunnel-id-123.json", doc.CredentialsFile)
	require.NotEmpty(t, doc.Ingress)

	last := doc.Ingress[len(doc.Ingress)-1]
	assert.Empty(t, last.Hostname, "catch-all rule carries no hostname")
	assert.Equal(t, "http_status:404", last.Service)

	hostnames := map[string]string{}
	for _, rule := range doc.Ingress[:len(doc.Ingress)-1] {
		assert.NotEmpty(t, rule.Hostname, "only the final rule may be a catch-all")
		hostnames[rule.Hostname] = rule.Service
	}
	assert.Equal(t, "http://localhost:8096", hostnames["watch.example.com"])
	assert.Equal(t, "http://localhost:5055", hostnames["requests.example.com"])
	assert.NotContains(t, hostnames, "rdtclient.example.com", "internal-only services stay unexposed")
}

func TestWriteTunnelConfigDryRun(t *testing.T) {
	cfg := Config{StackRoot: t.TempDir(), Domain: "example.com"}
	r := &Runner{DryRun: true}

	require.NoError(t, writeTunnelConfig(r, cfg, "id"))
	_, err := os.Stat(tunnelConfigPath(cfg))
	assert.True(t, os.IsNotExist(err), "dry-run must not touch disk")
}
