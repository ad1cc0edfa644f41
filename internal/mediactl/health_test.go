package mediactl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	client := &http.Client{Timeout: time.Second}
	ctx := context.Background()

	res := checkHTTP(ctx, client, HealthCheck{Name: "http/sonarr", URL: srv.URL + "/ping", ExpectStatus: 200})
	assert.Equal(t, StatePass, res.State)

	res = checkHTTP(ctx, client, HealthCheck{Name: "http/sonarr", URL: srv.URL + "/down", ExpectStatus: 200})
	assert.Equal(t, StateFail, res.State)
	assert.Contains(t, res.Detail, "503")

	res = checkHTTP(ctx, client, HealthCheck{Name: "http/gone", URL: "http://127.0.0.1:1/ping", ExpectStatus: 200})
	assert.Equal(t, StateFail, res.State)
	assert.Equal(t, "unreachable", res.Detail)
}

func TestRunHealthCountsAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	checks := []HealthCheck{
		{Name: "http/b", URL: srv.URL + "/ok", ExpectStatus: 200},
		{Name: "http/a", URL: srv.URL + "/ok", ExpectStatus: 200},
		{Name: "http/c", URL: srv.URL + "/bad", ExpectStatus: 200},
	}

	rep := RunHealth(context.Background(), &Runner{}, checks, 2*time.Second)
	require.Len(t, rep.Results, 3)
	assert.Equal(t, 2, rep.Pass)
	assert.Equal(t, 1, rep.Fail)
	assert.False(t, rep.Healthy())

	assert.Equal(t, "http/a", rep.Results[0].Check.Name)
	assert.Equal(t, "http/b", rep.Results[1].Check.Name)
	assert.Equal(t, "http/c", rep.Results[2].Check.Name)
}

func TestRunHealthMixedChecksKeepsEveryResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	stubCommand(t, "docker", "exit 1")

	var checks []HealthCheck
	for i := 0; i < 25; i++ {
		checks = append(checks,
			HealthCheck{Name: fmt.Sprintf("http/svc-%02d", i), URL: srv.URL + "/ping", ExpectStatus: 200},
			HealthCheck{Name: fmt.Sprintf("container/svc-%02d", i), Container: fmt.Sprintf("svc-%02d", i)})
	}

	rep := RunHealth(context.Background(), &Runner{}, checks, 2*time.Second)

	require.Len(t, rep.Results, len(checks), "every check yields exactly one result")
	assert.Equal(t, len(checks), rep.Pass+rep.Warn+rep.Fail)
	assert.Equal(t, 25, rep.Pass, "all endpoint checks pass")
	assert.Equal(t, 25, rep.Fail, "all container checks fail with docker unavailable")
}

func TestBuildHealthChecksIncludesPhaseContainers(t *testing.T) {
	cfg := Config{Domain: "example.com"}

	base := BuildHealthChecks(cfg, nil)
	names := map[string]bool{}
	for _, c := range base {
		names[c.Name] = true
	}
	assert.True(t, names["container/jellyfin"])
	assert.True(t, names["http/jellyfin"])
	assert.False(t, names["container/uptime-kuma"])

	withPhase := BuildHealthChecks(cfg, []string{"monitoring"})
	names = map[string]bool{}
	for _, c := range withPhase {
		names[c.Name] = true
	}
	assert.True(t, names["container/uptime-kuma"])
}

func TestRecordHealthAlertsOnTransitions(t *testing.T) {
	var alerts []string
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerts = append(alerts, r.Header.Get("Title"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ntfy.Close()

	store := NewStateStore(filepath.Join(t.TempDir(), "health.json"))
	alerter := NewAlerter(map[string]string{"NTFY_TOPIC": "media", "NTFY_URL": ntfy.URL})
	ctx := context.Background()

	passing := HealthReport{Results: []HealthResult{
		{Check: HealthCheck{Name: "container/jellyfin"}, State: StatePass, Detail: "running"},
	}}
	failing := HealthReport{Results: []HealthResult{
		{Check: HealthCheck{Name: "container/jellyfin"}, State: StateFail, Detail: "exited"},
	}}

	// First run records state but a never-seen check must not alert.
	require.NoError(t, RecordHealth(ctx, store, alerter, failing))
	assert.Empty(t, alerts)

	// fail -> pass raises a recovery notice.
	require.NoError(t, RecordHealth(ctx, store, alerter, passing))
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "recovered")

	// pass -> pass is quiet.
	require.NoError(t, RecordHealth(ctx, store, alerter, passing))
	assert.Len(t, alerts, 1)

	// pass -> fail alerts.
	require.NoError(t, RecordHealth(ctx, store, alerter, failing))
	require.Len(t, alerts, 2)
	assert.Contains(t, alerts[1], "failed")
}
