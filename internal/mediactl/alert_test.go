package mediactl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlerterNoChannelsIsNoOp(t *testing.T) {
	a := NewAlerter(map[string]string{})
	assert.NoError(t, a.Send(context.Background(), "error", "title", "message"))
}

func TestAlerterNtfy(t *testing.T) {
	var gotPath, gotTitle, gotPriority, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(map[string]string{"NTFY_TOPIC": "media-alerts", "NTFY_URL": srv.URL})
	require.NoError(t, a.Send(context.Background(), "error", "Disk full", "no space left"))

	assert.Equal(t, "/media-alerts", gotPath)
	assert.Equal(t, "Disk full", gotTitle)
	assert.Equal(t, "high", gotPriority)
	assert.Equal(t, "no space left", gotBody)
}

func TestAlerterDiscord(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAlerter(map[string]string{"DISCORD_WEBHOOK_URL": srv.URL})
	require.NoError(t, a.Send(context.Background(), "info", "Backup done", "42 MB archived"))

	content, ok := payload["content"].(string)
	require.True(t, ok)
	assert.Contains(t, content, "Backup done")
	assert.Contains(t, content, "42 MB archived")
}

func TestAlerterChannelFailureSurfacesWhenNothingSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(map[string]string{"NTFY_TOPIC": "x", "NTFY_URL": srv.URL})
	err := a.Send(context.Background(), "warn", "t", "m")
	assert.Error(t, err)
}

func TestAlerterFanOutToleratesOneFailure(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer good.Close()

	a := NewAlerter(map[string]string{
		"NTFY_TOPIC":          "x",
		"NTFY_URL":            bad.URL,
		"DISCORD_WEBHOOK_URL": good.URL,
	})
	assert.NoError(t, a.Send(context.Background(), "warn", "t", "m"),
		"one delivered channel is success")
}

func TestNtfyPriority(t *testing.T) {
	assert.Equal(t, "high", ntfyPriority("error"))
	assert.Equal(t, "default", ntfyPriority("warn"))
	assert.Equal(t, "low", ntfyPriority("info"))
}
