package mediactl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("http://rdtclient:6500")
	require.NoError(t, err)
	assert.Equal(t, "rdtclient", host)
	assert.Equal(t, 6500, port)

	host, port, err = splitHostPort("https://example.com:8443/")
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, 8443, port)

	_, _, err = splitHostPort("http://noport")
	assert.Error(t, err)

	_, _, err = splitHostPort("http://host:abc")
	assert.Error(t, err)
}

// fakeArr simulates the slice of the *arr v3 API the configurator touches.
type fakeArr struct {
	apiKey          string
	downloadClients []map[string]any
	rootFolders     []map[string]any
	posts           int
}

func (f *fakeArr) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != f.apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/v3/system/status":
			json.NewEncoder(w).Encode(map[string]string{"version": "4.0"})
		case "/api/v3/downloadclient":
			if r.Method == http.MethodPost {
				var body map[string]any
				json.NewDecoder(r.Body).Decode(&body)
				f.downloadClients = append(f.downloadClients, body)
				f.posts++
				w.WriteHeader(http.StatusCreated)
				return
			}
			json.NewEncoder(w).Encode(f.downloadClients)
		case "/api/v3/rootfolder":
			if r.Method == http.MethodPost {
				var body map[string]any
				json.NewDecoder(r.Body).Decode(&body)
				f.rootFolders = append(f.rootFolders, body)
				f.posts++
				w.WriteHeader(http.StatusCreated)
				return
			}
			json.NewEncoder(w).Encode(f.rootFolders)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestEnsureDownloadClientIdempotent(t *testing.T) {
	fake := &fakeArr{apiKey: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newArrClient("sonarr", srv.URL, "secret")
	ctx := context.Background()

	require.NoError(t, client.ensureDownloadClient(ctx, "http://rdtclient:6500", "sonarr"))
	require.Len(t, fake.downloadClients, 1)
	assert.Equal(t, "RdtClient", fake.downloadClients[0]["name"])
	assert.Equal(t, "QBittorrent", fake.downloadClients[0]["implementation"])

	// Second run finds the existing entry and posts nothing.
	require.NoError(t, client.ensureDownloadClient(ctx, "http://rdtclient:6500", "sonarr"))
	assert.Equal(t, 1, fake.posts)
}

func TestEnsureRootFolderIdempotent(t *testing.T) {
	fake := &fakeArr{apiKey: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newArrClient("radarr", srv.URL, "secret")
	ctx := context.Background()

	require.NoError(t, client.ensureRootFolder(ctx, "/movies"))
	require.Len(t, fake.rootFolders, 1)
	assert.Equal(t, "/movies", fake.rootFolders[0]["path"])

	require.NoError(t, client.ensureRootFolder(ctx, "/movies"))
	assert.Equal(t, 1, fake.posts)
}

func TestArrClientBadKey(t *testing.T) {
	fake := &fakeArr{apiKey: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newArrClient("sonarr", srv.URL, "wrong")
	err := client.do(context.Background(), http.MethodGet, "system/status", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
