package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ruteri/storageitem-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGitHubTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/assets", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"full_name":"acme/assets"}`))
	})
	mux.HandleFunc("/repos/acme/assets/contents/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "v1", r.URL.Query().Get("ref"))

		switch strings.TrimPrefix(r.URL.Path, "/repos/acme/assets/contents/") {
		case "docs/hello world.txt":
			encoded := base64.StdEncoding.EncodeToString([]byte("hello from github"))
			json.NewEncoder(w).Encode(GitHubContent{
				Type:     "file",
				Encoding: "base64",
				// The API wraps base64 content at 60 columns.
				Content: encoded[:10] + "\n" + encoded[10:],
				Path:    "docs/hello world.txt",
				SHA:     "abc123",
			})
		case "docs":
			w.Write([]byte(`[{"type":"file","path":"docs/hello world.txt"}]`))
		case "link":
			json.NewEncoder(w).Encode(GitHubContent{Type: "symlink", Path: "link"})
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubBackend_Fetch(t *testing.T) {
	srv := newGitHubTestServer(t)
	backend := NewGitHubBackend("acme", "assets", "v1", "secret", testLogger()).WithAPIURL(srv.URL + "/")

	rc, err := backend.Fetch(context.Background(), "/docs/../docs/hello world.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello from github", string(data))

	tests := []struct {
		path    string
		wantErr error
	}{
		{"missing.txt", interfaces.ErrContentNotFound},
		{"docs", interfaces.ErrContentNotFound},
		{"link", interfaces.ErrContentNotFound},
		{"", interfaces.ErrInvalidPath},
		{"/", interfaces.ErrInvalidPath},
	}
	for _, tt := range tests {
		_, err := backend.Fetch(context.Background(), tt.path)
		assert.ErrorIs(t, err, tt.wantErr, tt.path)
	}

	_, err = backend.Fetch(context.Background(), "broken")
	assert.ErrorContains(t, err, "GitHub API error")
}

func TestGitHubBackend_ReadOnly(t *testing.T) {
	srv := newGitHubTestServer(t)
	backend := NewGitHubBackend("acme", "assets", "v1", "secret", testLogger()).WithAPIURL(srv.URL)

	err := backend.Store(context.Background(), "a.txt", strings.NewReader("x"), interfaces.ObjectInfo{})
	assert.ErrorIs(t, err, interfaces.ErrReadOnlyBackend)

	assert.True(t, backend.Available(context.Background()))
	assert.Empty(t, backend.PublicURL("a.txt"), "no raw URL outside github.com")

	missing := NewGitHubBackend("acme", "gone", "", "", testLogger()).WithAPIURL(srv.URL)
	assert.False(t, missing.Available(context.Background()))
}
