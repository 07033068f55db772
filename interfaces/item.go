package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrItemSaved is returned when an immutable attribute of a saved item is modified,
	// or when a saved item is saved again.
	ErrItemSaved = errors.New("storage item already saved")

	// ErrItemNoData is returned by Save when the item has no byte source left to consume.
	ErrItemNoData = errors.New("storage item has no data")
)

// StorageItem is a backend-tagged reference to a blob of bytes.
//
// An item starts unsaved. Save consumes its byte source exactly once and moves it
// to the saved state, after which path and storage can no longer change.
// A StorageItem is not safe for concurrent use.
type StorageItem struct {
	storage     string
	backend     StorageBackend
	path        string
	contentType string
	metadata    map[string]any
	data        io.Reader
	saved       bool
}

// NewStorageItem creates an unsaved item bound to the named backend.
func NewStorageItem(storage string, backend StorageBackend) *StorageItem {
	return &StorageItem{
		storage: storage,
		backend: backend,
	}
}

// Storage returns the name of the backend the item belongs to.
func (i *StorageItem) Storage() string {
	return i.storage
}

// Path returns the key of the item within its backend.
func (i *StorageItem) Path() string {
	return i.path
}

// SetPath sets the key of the item within its backend.
func (i *StorageItem) SetPath(path string) error {
	if i.saved {
		return ErrItemSaved
	}
	i.path = path
	return nil
}

// ContentType returns the MIME type of the item, if known.
func (i *StorageItem) ContentType() string {
	return i.contentType
}

// SetContentType sets the MIME type of the item.
func (i *StorageItem) SetContentType(contentType string) error {
	if i.saved {
		return ErrItemSaved
	}
	i.contentType = contentType
	return nil
}

// Metadata returns the metadata map of the item. It may be nil.
// Changes made to the map after Save are never written to the backend.
func (i *StorageItem) Metadata() map[string]any {
	return i.metadata
}

// SetMetadata replaces the metadata map of the item.
func (i *StorageItem) SetMetadata(metadata map[string]any) error {
	if i.saved {
		return ErrItemSaved
	}
	i.metadata = metadata
	return nil
}

// PutMetadata sets a single metadata key, creating the map when needed.
func (i *StorageItem) PutMetadata(key string, value any) error {
	if i.saved {
		return ErrItemSaved
	}
	if i.metadata == nil {
		i.metadata = make(map[string]any)
	}
	i.metadata[key] = value
	return nil
}

// SetData sets the byte source consumed by Save.
func (i *StorageItem) SetData(data io.Reader) error {
	if i.saved {
		return ErrItemSaved
	}
	i.data = data
	return nil
}

// Saved reports whether the item has been persisted.
func (i *StorageItem) Saved() bool {
	return i.saved
}

// Save persists the byte source of the item to its backend.
// The byte source is consumed whether or not the write succeeds; no retry is attempted.
func (i *StorageItem) Save(ctx context.Context) error {
	if i.saved {
		return ErrItemSaved
	}
	if strings.TrimSpace(i.path) == "" {
		return fmt.Errorf("%w: blank path", ErrInvalidPath)
	}
	if i.data == nil {
		return ErrItemNoData
	}
	if i.backend == nil {
		return fmt.Errorf("%w: %s", ErrBackendUnavailable, i.storage)
	}

	data := i.data
	i.data = nil

	err := i.backend.Store(ctx, i.path, data, ObjectInfo{
		ContentType: i.contentType,
		Metadata:    i.metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to save [%s] to storage [%s]: %w", i.path, i.storage, err)
	}

	i.saved = true
	return nil
}

// PublicURL returns the URL the backend serves the item at, or an empty string.
func (i *StorageItem) PublicURL() string {
	if u, ok := i.backend.(PublicURLer); ok && i.path != "" {
		return u.PublicURL(i.path)
	}
	return ""
}

type storageItemJSON struct {
	Storage     string         `json:"storage"`
	Path        string         `json:"path"`
	ContentType string         `json:"contentType,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	PublicURL   string         `json:"publicUrl,omitempty"`
}

// MarshalJSON encodes the item in the same shape accepted as a JSON reference.
func (i *StorageItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(storageItemJSON{
		Storage:     i.storage,
		Path:        i.path,
		ContentType: i.contentType,
		Metadata:    i.metadata,
		PublicURL:   i.PublicURL(),
	})
}
