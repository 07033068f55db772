// Package uploadtest runs plugins through a real ingestion pipeline backed by
// a temporary file storage.
package uploadtest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/ruteri/storageitem-service/interfaces"
	"github.com/ruteri/storageitem-service/storage"
	"github.com/ruteri/storageitem-service/upload"
	"github.com/stretchr/testify/require"
)

// StorageName is the only storage configured in a Harness.
const StorageName = "test"

// Harness wires a Factory to a file backend in t.TempDir.
type Harness struct {
	Plugins *upload.Plugins
	Factory *upload.Factory
	Backend *storage.FileBackend
	TempDir string

	t *testing.T
}

// New creates a Harness with an empty plugin set.
func New(t *testing.T) *Harness {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend, err := storage.NewFileBackend(t.TempDir(), log)
	require.NoError(t, err)

	reg := storage.NewRegistry(StorageName, log)
	require.NoError(t, reg.Add(StorageName, backend))

	plugins := upload.NewPlugins()
	tempDir := t.TempDir()

	return &Harness{
		Plugins: plugins,
		Factory: upload.NewFactory(reg, plugins, upload.Config{TempDir: tempDir}, log),
		Backend: backend,
		TempDir: tempDir,
		t:       t,
	}
}

// Ingest uploads data as a file part named name.
func (h *Harness) Ingest(name, contentType string, data []byte) (*interfaces.StorageItem, error) {
	part := upload.NewReaderPart("file", name, contentType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
	return h.Factory.FromPart(context.Background(), part, "")
}

// Stored returns the bytes persisted for item.
func (h *Harness) Stored(item *interfaces.StorageItem) []byte {
	h.t.Helper()

	rc, err := h.Backend.Fetch(context.Background(), item.Path())
	require.NoError(h.t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(h.t, err)
	return data
}

// RequireClean fails the test when staged files were left behind.
func (h *Harness) RequireClean() {
	h.t.Helper()

	entries, err := os.ReadDir(h.TempDir)
	require.NoError(h.t, err)
	require.Empty(h.t, entries)
}
