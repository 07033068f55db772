package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/ruteri/storageitem-service/interfaces"
	"github.com/ruteri/storageitem-service/storage"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingBackend keeps stored objects in memory and counts writes.
type recordingBackend struct {
	name string

	mu     sync.Mutex
	stored map[string][]byte
	infos  map[string]interfaces.ObjectInfo
	writes int
	ctxErr error
	err    error
}

func newRecordingBackend(name string) *recordingBackend {
	return &recordingBackend{
		name:   name,
		stored: make(map[string][]byte),
		infos:  make(map[string]interfaces.ObjectInfo),
	}
}

func (b *recordingBackend) Fetch(_ context.Context, path string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.stored[path]
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *recordingBackend) Store(ctx context.Context, path string, data io.Reader, info interfaces.ObjectInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writes++
	b.ctxErr = ctx.Err()
	if b.err != nil {
		return b.err
	}

	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	metadata := make(map[string]any, len(info.Metadata))
	for k, v := range info.Metadata {
		metadata[k] = v
	}
	b.stored[path] = buf
	b.infos[path] = interfaces.ObjectInfo{ContentType: info.ContentType, Metadata: metadata}
	return nil
}

func (b *recordingBackend) Available(context.Context) bool { return true }
func (b *recordingBackend) Name() string                   { return b.name }
func (b *recordingBackend) LocationURI() string            { return "memory://" + b.name }

func (b *recordingBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

type fixture struct {
	factory *Factory
	plugins *Plugins
	local   *recordingBackend
	alt     *recordingBackend
	tempDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	local := newRecordingBackend("local")
	alt := newRecordingBackend("alt")

	reg := storage.NewRegistry("local", testLogger())
	require.NoError(t, reg.Add("local", local))
	require.NoError(t, reg.Add("alt", alt))

	plugins := NewPlugins()
	tempDir := t.TempDir()

	return &fixture{
		factory: NewFactory(reg, plugins, Config{TempDir: tempDir}, testLogger()),
		plugins: plugins,
		local:   local,
		alt:     alt,
		tempDir: tempDir,
	}
}

func (fx *fixture) requireNoStagedFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(fx.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries, "staged files left behind")
}

func bytesPart(name, content string) *Part {
	return NewReaderPart("file", name, "text/plain", int64(len(content)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(content))), nil
	})
}

type preValidateFunc func(ctx context.Context, sc *StagingContext) error

func (f preValidateFunc) PreValidate(ctx context.Context, sc *StagingContext) error { return f(ctx, sc) }

type preSaveFunc func(ctx context.Context, sc *StagingContext) error

func (f preSaveFunc) PreSave(ctx context.Context, sc *StagingContext) error { return f(ctx, sc) }

type postSaveFunc func(ctx context.Context, sc *StagingContext) error

func (f postSaveFunc) PostSave(ctx context.Context, sc *StagingContext) error { return f(ctx, sc) }

type fixedPathGenerator struct {
	prefix   string
	priority map[string]float64
	fallback float64
}

func (g fixedPathGenerator) Priority(storage string) float64 {
	if p, ok := g.priority[storage]; ok {
		return p
	}
	return g.fallback
}

func (g fixedPathGenerator) CreatePath(name string) string {
	return g.prefix + "/" + name
}

var errHook = errors.New("hook says no")

func multipartRequest(t *testing.T, build func(w *multipart.Writer)) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	build(w)
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/_dari/upload", &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}
