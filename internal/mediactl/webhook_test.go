package mediactl

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrEventTitle(t *testing.T) {
	var e arrEvent
	assert.Equal(t, "Unknown", e.title())

	e.Movie.Title = "Heat"
	assert.Equal(t, "Heat", e.title())

	e.Series.Title = "The Wire"
	assert.Equal(t, "The Wire", e.title(), "series title wins when both are set")
}

func TestWebhookHandler(t *testing.T) {
	var alerts []string
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alerts = append(alerts, r.Header.Get("Title"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ntfy.Close()

	alerter := NewAlerter(map[string]string{"NTFY_TOPIC": "media", "NTFY_URL": ntfy.URL})
	srv := httptest.NewServer(webhookHandler(alerter))
	defer srv.Close()

	// Import event alerts.
	resp, err := http.Post(srv.URL+"/", "application/json",
		strings.NewReader(`{"eventType":"Download","series":{"title":"The Wire"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Media Ready", alerts[0])

	// Test events are acknowledged but not forwarded.
	resp, err = http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"eventType":"Test"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, alerts, 1)

	// Garbage is rejected.
	resp, err = http.Post(srv.URL+"/", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// GET is not allowed on the event path.
	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	// Liveness endpoint.
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
