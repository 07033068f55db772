package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ruteri/storageitem-service/interfaces"
	"github.com/ruteri/storageitem-service/staging"
)

// DefaultMaxMemory is the part of a multipart body kept in memory while parsing.
const DefaultMaxMemory = 32 << 20

// StorageRegistry creates unsaved items bound to named storages.
type StorageRegistry interface {
	CreateIn(name string) (*interfaces.StorageItem, error)
	DefaultStorage() string
}

// Metrics receives ingestion measurements. All methods must be safe for concurrent use.
type Metrics interface {
	IngestDone(kind, result string, duration time.Duration)
	StagedBytes(n int64)
	HookFailed(stage, hook string)
}

type noopMetrics struct{}

func (noopMetrics) IngestDone(string, string, time.Duration) {}
func (noopMetrics) StagedBytes(int64)                        {}
func (noopMetrics) HookFailed(string, string)                {}

// Config configures a Factory.
type Config struct {
	// DefaultStorage overrides the storage registry default when not blank.
	DefaultStorage string
	// TempDir holds staged uploads. Empty uses the system temp directory.
	TempDir string
	// MaxMemory is passed to ParseMultipartForm. Zero uses DefaultMaxMemory.
	MaxMemory int64
	Metrics   Metrics
}

// Factory turns upload parts and JSON references into storage items.
// It is safe for concurrent use; each call is an independent ingestion.
type Factory struct {
	storages       StorageRegistry
	plugins        *Plugins
	defaultStorage string
	tempDir        string
	maxMemory      int64
	metrics        Metrics
	log            *slog.Logger
}

// NewFactory creates a Factory. A nil plugins uses DefaultPlugins.
func NewFactory(storages StorageRegistry, plugins *Plugins, cfg Config, log *slog.Logger) *Factory {
	if plugins == nil {
		plugins = DefaultPlugins
	}
	if cfg.MaxMemory <= 0 {
		cfg.MaxMemory = DefaultMaxMemory
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Factory{
		storages:       storages,
		plugins:        plugins,
		defaultStorage: strings.TrimSpace(cfg.DefaultStorage),
		tempDir:        cfg.TempDir,
		maxMemory:      cfg.MaxMemory,
		metrics:        cfg.Metrics,
		log:            log,
	}
}

// Ingest creates a storage item from the request parameter fieldName.
//
// A multipart file is staged, run through the hook pipeline and saved. A plain
// value, multipart or not, is parsed as a JSON reference to an existing object.
// When the request has no such parameter, Ingest returns a nil item and nil error.
//
// storageName overrides the storage for uploaded files.
func (f *Factory) Ingest(ctx context.Context, r *http.Request, fieldName, storageName string) (*interfaces.StorageItem, error) {
	if strings.TrimSpace(fieldName) == "" {
		return nil, ErrBlankFieldName
	}

	if r.MultipartForm == nil {
		err := r.ParseMultipartForm(f.maxMemory)
		if err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
		}
	}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File[fieldName]; len(files) > 0 {
			return f.FromPart(ctx, NewFilePart(fieldName, files[0]), storageName)
		}
		if values := r.MultipartForm.Value[fieldName]; len(values) > 0 {
			return f.FromReference(values[0])
		}
		return nil, nil
	}

	values, ok := r.Form[fieldName]
	if !ok || len(values) == 0 {
		return nil, nil
	}
	return f.FromReference(values[0])
}

// FromReference creates an unsaved item pointing at an object assumed to exist.
// text must be a JSON object with a "path" key and optional "storage",
// "contentType" and "metadata" keys. The referenced object is not checked.
func (f *Factory) FromReference(text string) (item *interfaces.StorageItem, err error) {
	start := time.Now()
	defer func() { f.observe("reference", err, start) }()

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var ref map[string]any
	if err := dec.Decode(&ref); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: null", ErrInvalidReference)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidReference)
	}

	path, err := coerceString("path", ref["path"])
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, ErrMissingPath
	}

	storage, err := coerceString("storage", ref["storage"])
	if err != nil {
		return nil, err
	}
	storage = firstNonBlank(storage, f.resolveDefault())
	if storage == "" {
		return nil, ErrNoStorage
	}

	contentType, err := coerceString("contentType", ref["contentType"])
	if err != nil {
		return nil, err
	}

	var metadata map[string]any
	switch m := ref["metadata"].(type) {
	case nil:
	case map[string]any:
		if len(m) > 0 {
			metadata = m
		}
	default:
		return nil, fmt.Errorf("%w: metadata must be an object", ErrInvalidReference)
	}

	item, err = f.storages.CreateIn(storage)
	if err != nil {
		return nil, err
	}

	// Unsaved items accept every setter.
	_ = item.SetContentType(contentType)
	_ = item.SetPath(path)
	_ = item.SetMetadata(metadata)

	return item, nil
}

// FromPart stages an uploaded file, runs the hook pipeline and saves the item.
//
// When a post-save hook fails, the saved item is returned together with a
// *HookError for StagePostSave. Any other error means nothing was written.
// The staged copy of the upload is always removed before FromPart returns.
func (f *Factory) FromPart(ctx context.Context, part *Part, storageName string) (item *interfaces.StorageItem, err error) {
	start := time.Now()
	defer func() { f.observe("upload", err, start) }()

	storage := firstNonBlank(storageName, part.RequestedStorage, f.resolveDefault())
	if storage == "" {
		return nil, fmt.Errorf("%w: file [%s]", ErrNoStorage, part.label())
	}

	item, err = f.storages.CreateIn(storage)
	if err != nil {
		return nil, err
	}

	staged, err := f.stage(part)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := staged.Release(); rerr != nil {
			f.log.Error("Failed to release staged upload", slog.String("file", staged.Name()), "err", rerr)
		}
	}()

	sc := &StagingContext{part: part, staged: staged, storage: storage}

	if err := f.runPreValidate(ctx, sc); err != nil {
		return nil, err
	}

	generator, err := f.plugins.SelectPathGenerator(storage)
	if err != nil {
		return nil, err
	}

	data, err := staged.Open()
	if err != nil {
		return nil, fmt.Errorf("%w [%s]: %w", staging.ErrStaging, part.label(), err)
	}
	defer data.Close()

	_ = item.SetContentType(part.ContentType)
	_ = item.SetPath(generator.CreatePath(part.Name))
	_ = item.SetData(data)
	sc.item = item

	if err := f.runPreSave(ctx, sc); err != nil {
		return nil, err
	}

	// Client disconnects must not abort a backend write that already started.
	if err := item.Save(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSave, err)
	}

	f.log.Info("Saved storage item",
		slog.String("storage", item.Storage()),
		slog.String("path", item.Path()),
		slog.String("contentType", item.ContentType()),
		slog.Int64("size", staged.Size()))

	if err := f.runPostSave(ctx, sc); err != nil {
		return item, err
	}

	return item, nil
}

func (f *Factory) stage(part *Part) (*staging.File, error) {
	src, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("%w [%s]: %w", staging.ErrStaging, part.label(), err)
	}
	defer src.Close()

	staged, err := staging.Stage(src, f.tempDir, part.label())
	if err != nil {
		return nil, err
	}

	f.metrics.StagedBytes(staged.Size())
	return staged, nil
}

func (f *Factory) resolveDefault() string {
	if f.defaultStorage != "" {
		return f.defaultStorage
	}
	return strings.TrimSpace(f.storages.DefaultStorage())
}

func (f *Factory) observe(kind string, err error, start time.Time) {
	result := "ok"
	if err != nil {
		result = Classify(err).String()
	}
	f.metrics.IngestDone(kind, result, time.Since(start))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// coerceString converts a scalar JSON value to its string form.
func coerceString(key string, v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("%w: %s must be a scalar", ErrInvalidReference, key)
	}
}
