package storage

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ruteri/storageitem-service/interfaces"
)

// StorageBackendFactory creates storage backends from URI strings and manages
// multi-backend configurations for mirrored storage.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log: logger,
	}
}

// StorageBackendFor creates a storage backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node, items written to MFS
//   - vault:// - HashiCorp Vault KV v2
//   - github:// - GitHub repository contents, read-only
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch strings.ToLower(location.Scheme) {
	case "file":
		return sf.createFileBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "vault":
		return sf.createVaultBackend(location)
	case "github":
		return sf.createGitHubBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a mirrored backend from a list of location URIs.
// Every location must produce a backend.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			return nil, fmt.Errorf("failed to create mirror member %s: %w", location.String(), err)
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewFileBackend(path, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=https://minio:9000&public=true&path_style=true
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("uri", location.String()))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	opts := S3Options{
		Bucket:    location.Host,
		Prefix:    strings.TrimPrefix(location.Path, "/"),
		Region:    location.GetParamOr("region", "us-east-1"),
		Endpoint:  location.GetParam("endpoint"),
		Public:    location.GetParamBool("public"),
		PathStyle: location.GetParamBool("path_style"),
	}

	if location.User != nil {
		opts.AccessKey = location.User.Username()
		opts.SecretKey, _ = location.User.Password()
		sf.log.Debug("Using embedded credentials for write access")
	}

	return NewS3Backend(opts, sf.log)
}

// createIPFSBackend creates an IPFS storage backend.
// URI format: ipfs://host:port/root/dir?timeout=30s&gateway=https://ipfs.io
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.String()))

	host, port, found := strings.Cut(location.Host, ":")
	if !found || port == "" {
		port = "5001"
	}
	if host == "" {
		host = "localhost"
	}

	timeout, err := time.ParseDuration(location.GetParamOr("timeout", "30s"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timeout: %v", interfaces.ErrInvalidLocationURI, err)
	}

	return NewIPFSBackend(host, port, location.Path, location.GetParam("gateway"), timeout, sf.log)
}

// createVaultBackend creates a Vault KV v2 storage backend.
// URI format: vault://vault.example.com:8200/secret/uploads?tls=false&token_env=VAULT_TOKEN
// The first path segment is the mount, the remainder the data path.
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("uri", location.String()))

	scheme := "https"
	if location.GetParam("tls") == "false" {
		scheme = "http"
	}

	mount, dataPath, _ := strings.Cut(strings.TrimPrefix(location.Path, "/"), "/")
	if mount == "" {
		mount = "secret"
	}

	token := os.Getenv(location.GetParamOr("token_env", "VAULT_TOKEN"))

	return NewVaultBackend(fmt.Sprintf("%s://%s", scheme, location.Host), mount, dataPath, token, sf.log)
}

// createGitHubBackend creates a read-only GitHub contents backend.
// URI format: github://owner/repo?ref=main&token_env=GITHUB_TOKEN&api=https://github.example.com/api/v3
func (sf *StorageBackendFactory) createGitHubBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating GitHub backend", slog.String("uri", location.String()))

	owner := location.Host
	repo := strings.Trim(location.Path, "/")
	if owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: GitHub URI must be github://owner/repo", interfaces.ErrInvalidLocationURI)
	}

	token := os.Getenv(location.GetParamOr("token_env", "GITHUB_TOKEN"))
	backend := NewGitHubBackend(owner, repo, location.GetParam("ref"), token, sf.log)
	if api := location.GetParam("api"); api != "" {
		backend.WithAPIURL(api)
	}
	return backend, nil
}
