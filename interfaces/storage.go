package interfaces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
)

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	User   *url.Userinfo
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "file", "s3", "ipfs", "vault", "github":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamOr returns a query parameter value or fallback when it is not set.
func (loc StorageBackendLocation) GetParamOr(name, fallback string) string {
	if v := loc.Query.Get(name); v != "" {
		return v
	}
	return fallback
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrUnknownStorage is returned when no backend is registered under a storage name.
	ErrUnknownStorage = errors.New("unknown storage")

	// ErrInvalidPath is returned when an item path is blank or escapes the backend root.
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrReadOnlyBackend is returned by Store on backends that only serve existing content.
	ErrReadOnlyBackend = errors.New("storage backend is read-only")
)

// ObjectInfo carries the item attributes a backend may persist next to the bytes.
type ObjectInfo struct {
	ContentType string
	Metadata    map[string]any
}

// StorageBackend provides path-addressed data storage.
type StorageBackend interface {
	// Fetch opens the object stored at path. Caller must close the returned reader.
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)

	// Store consumes data and persists it at path.
	Store(ctx context.Context, path string, data io.Reader, info ObjectInfo) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// PublicURLer is implemented by backends that can serve stored objects directly.
// An empty string means the path has no public URL.
type PublicURLer interface {
	PublicURL(path string) string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, s3://, ipfs://, vault://, github:// (read-only)
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates a mirrored storage backend.
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)
}
