package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/storageitem-service/interfaces"
)

// VaultBackend implements a storage backend using the HashiCorp Vault KV v2 engine.
// It suits small, sensitive uploads: content is stored base64-encoded next to its
// content type and metadata, one secret per item path.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a new Vault storage backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: Vault mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "uploads")
//   - token: Vault token; when empty the client falls back to VAULT_TOKEN
//   - log: Structured logger for operational insights
func NewVaultBackend(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

// Fetch retrieves the item stored at path.
// It uses the KV v2 API which requires a specific path structure.
func (b *VaultBackend) Fetch(ctx context.Context, itemPath string) (io.ReadCloser, error) {
	start := time.Now()
	path := b.secretPath(itemPath)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		b.log.Debug("Content not found in Vault", slog.String("path", path))
		return nil, interfaces.ErrContentNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("invalid content encoding in Vault data: %w", err)
	}

	b.log.Debug("Fetched content from Vault",
		slog.String("path", path),
		slog.Int("size", len(raw)),
		slog.Duration("duration", time.Since(start)))

	return io.NopCloser(bytes.NewReader(raw)), nil
}

// Store writes data to Vault at the item path.
func (b *VaultBackend) Store(ctx context.Context, itemPath string, data io.Reader, info interfaces.ObjectInfo) error {
	start := time.Now()
	path := b.secretPath(itemPath)

	raw, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content":      base64.StdEncoding.EncodeToString(raw),
			"content_type": info.ContentType,
			"metadata":     info.Metadata,
		},
	}

	if _, err := b.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored content in Vault",
		slog.String("path", path),
		slog.Int("size", len(raw)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if the Vault backend is accessible.
// It uses the health endpoint to verify that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// secretPath builds the KV v2 path: {mount}/data/{dataPath}/{itemPath}.
func (b *VaultBackend) secretPath(itemPath string) string {
	itemPath = strings.Trim(itemPath, "/")
	if b.dataPath == "" {
		return fmt.Sprintf("%s/data/%s", b.mountPath, itemPath)
	}
	return fmt.Sprintf("%s/data/%s/%s", b.mountPath, b.dataPath, itemPath)
}
