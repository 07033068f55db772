package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/storageitem-service/interfaces"
	"golang.org/x/sync/errgroup"
)

// MultiStorageBackend implements interfaces.StorageBackend by mirroring writes
// to several backends and reading from the first one that has the content.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new mirrored storage backend.
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch tries each available backend in order until one returns the content.
func (m *MultiStorageBackend) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("path", path))
			continue
		}

		rc, err := backend.Fetch(ctx, path)
		if err == nil {
			m.log.Debug("Fetched content",
				slog.String("backend_name", backend.Name()),
				slog.String("path", path),
				slog.Duration("duration", time.Since(start)))
			return rc, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("path", path),
			"err", err)
	}

	if len(errs) > 0 && allNotFound(errs) {
		return nil, interfaces.ErrContentNotFound
	}

	m.log.Error("All backends failed to fetch content",
		slog.String("path", path),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all backends failed to fetch %s: %w", path, errors.Join(append(errs, interfaces.ErrBackendUnavailable)...))
}

// Store writes data to all available backends concurrently.
// The write succeeds when at least one backend persisted the content.
func (m *MultiStorageBackend) Store(ctx context.Context, path string, data io.Reader, info interfaces.ObjectInfo) error {
	start := time.Now()

	var available []interfaces.StorageBackend
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}
		available = append(available, backend)
	}
	if len(available) == 0 {
		return interfaces.ErrBackendUnavailable
	}

	readers, err := fanOut(data, len(available))
	if err != nil {
		return fmt.Errorf("failed to prepare data for mirroring: %w", err)
	}

	errs := make([]error, len(available))
	var g errgroup.Group
	for i, backend := range available {
		g.Go(func() error {
			errs[i] = backend.Store(ctx, path, readers[i], info)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", available[i].Name(), err))
			m.log.Warn("Failed to store to backend",
				slog.String("backend_name", available[i].Name()),
				slog.String("path", path),
				"err", err)
		}
	}

	if len(failed) == len(available) {
		m.log.Error("All backends failed to store data",
			slog.String("path", path),
			slog.Int("failed_backends", len(failed)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("all backends failed to store data: %w", errors.Join(failed...))
	}

	m.log.Info("Stored content",
		slog.String("path", path),
		slog.Int("backends", len(available)-len(failed)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the URI of this backend
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}

// PublicURL returns the first public URL any mirrored backend offers.
func (m *MultiStorageBackend) PublicURL(path string) string {
	for _, backend := range m.backends {
		if u, ok := backend.(interfaces.PublicURLer); ok {
			if url := u.PublicURL(path); url != "" {
				return url
			}
		}
	}
	return ""
}

// fanOut returns n independent readers over data. Seekable sources such as
// staged files are shared through section readers; anything else is buffered.
func fanOut(data io.Reader, n int) ([]io.Reader, error) {
	readers := make([]io.Reader, n)
	if n == 1 {
		readers[0] = data
		return readers, nil
	}

	if rs, ok := data.(interface {
		io.ReaderAt
		io.Seeker
	}); ok {
		offset, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		end, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, err
		}
		for i := range readers {
			readers[i] = io.NewSectionReader(rs, offset, end-offset)
		}
		return readers, nil
	}

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}
	for i := range readers {
		readers[i] = bytes.NewReader(buf)
	}
	return readers, nil
}

func allNotFound(errs []error) bool {
	for _, err := range errs {
		if !errors.Is(err, interfaces.ErrContentNotFound) {
			return false
		}
	}
	return true
}
