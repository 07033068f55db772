package staging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestStage_RepeatedReads(t *testing.T) {
	dir := t.TempDir()

	f, err := Stage(strings.NewReader("staged bytes"), dir, "file")
	require.NoError(t, err)
	defer f.Release()

	assert.Equal(t, int64(len("staged bytes")), f.Size())
	assert.Equal(t, dir, filepath.Dir(f.Name()))
	assert.True(t, strings.HasPrefix(filepath.Base(f.Name()), "cms."))
	assert.True(t, strings.HasSuffix(f.Name(), ".tmp"))

	for i := 0; i < 2; i++ {
		r, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		r.Close()
		require.NoError(t, err)
		assert.Equal(t, "staged bytes", string(data))
	}
}

func TestStage_UniqueNames(t *testing.T) {
	dir := t.TempDir()

	a, err := Stage(strings.NewReader("a"), dir, "a")
	require.NoError(t, err)
	defer a.Release()
	b, err := Stage(strings.NewReader("b"), dir, "b")
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Name(), b.Name())
}

func TestStage_CopyFailureCleansUp(t *testing.T) {
	dir := t.TempDir()

	_, err := Stage(failingReader{}, dir, "avatar")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaging)
	assert.Contains(t, err.Error(), "avatar")
	assert.Contains(t, err.Error(), "disk on fire")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStage_MissingDir(t *testing.T) {
	_, err := Stage(strings.NewReader("x"), filepath.Join(t.TempDir(), "missing"), "file")
	assert.ErrorIs(t, err, ErrStaging)
}

func TestFile_ReleaseOnce(t *testing.T) {
	f, err := Stage(strings.NewReader("x"), t.TempDir(), "file")
	require.NoError(t, err)

	require.NoError(t, f.Release())
	_, err = os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, f.Release())
}
