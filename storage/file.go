package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/storageitem-service/interfaces"
)

// FileBackend implements a storage backend using the local file system.
// Items are stored under baseDir at their item path.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file storage backend using the specified base directory.
// The directory is created if it doesn't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     absDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", absDir),
	}, nil
}

// Fetch opens the file stored at path.
// Returns ErrContentNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	filePath, err := b.getFilePath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	b.log.Debug("Fetched content from file", slog.String("path", filePath))
	return f, nil
}

// Store streams data to path using a temp file and an atomic rename,
// so a failed write never leaves a partial file behind.
func (b *FileBackend) Store(ctx context.Context, path string, data io.Reader, info interfaces.ObjectInfo) error {
	filePath, err := b.getFilePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	n, werr := io.Copy(tmp, data)
	cerr := tmp.Close()
	if werr != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("failed to write file: %w", werr)
	}
	if cerr != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("failed to flush file: %w", cerr)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.Int64("size", n),
		slog.String("contentType", info.ContentType))

	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// getFilePath resolves an item path below the base directory.
func (b *FileBackend) getFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: blank path", interfaces.ErrInvalidPath)
	}

	joined := filepath.Join(b.baseDir, filepath.Clean(filepath.FromSlash(path)))
	rel, err := filepath.Rel(b.baseDir, joined)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes storage root", interfaces.ErrInvalidPath, path)
	}
	return joined, nil
}
