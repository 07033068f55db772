package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/storageitem-service/interfaces"
)

// IPFSBackend implements a storage backend using the InterPlanetary File System (IPFS).
// Items are written into the node's mutable file system (MFS) under root, so they
// stay addressable by item path while IPFS content-addresses the blocks.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	root        string
	gateway     string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS storage backend connected to the specified host and port.
// When gateway is set, PublicURL resolves stored items through that HTTP gateway.
func NewIPFSBackend(host, port, root, gateway string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	root = "/" + strings.Trim(root, "/")
	uri := fmt.Sprintf("ipfs://%s%s?timeout=%s", apiURL, root, timeout)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		root:        root,
		gateway:     strings.TrimSuffix(gateway, "/"),
		log:         log,
		locationURI: uri,
	}, nil
}

// Fetch reads the MFS file stored at the item path.
// Returns ErrContentNotFound if the file doesn't exist or ErrBackendUnavailable
// if the IPFS node is not accessible.
func (b *IPFSBackend) Fetch(ctx context.Context, itemPath string) (io.ReadCloser, error) {
	start := time.Now()
	mfsPath := b.getMFSPath(itemPath)

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, mfsPath)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			b.log.Debug("Content not found in IPFS",
				slog.String("path", mfsPath),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrContentNotFound
		}

		b.log.Error("Failed to fetch data from IPFS",
			slog.String("path", mfsPath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}

	return reader, nil
}

// Store writes data into MFS at the item path, creating parent directories.
// Returns ErrBackendUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Store(ctx context.Context, itemPath string, data io.Reader, info interfaces.ObjectInfo) error {
	mfsPath := b.getMFSPath(itemPath)

	if !b.shell.IsUp() {
		return interfaces.ErrBackendUnavailable
	}

	err := b.shell.FilesWrite(ctx, mfsPath, data,
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return fmt.Errorf("failed to write data to IPFS: %w", err)
	}

	b.log.Debug("Stored content in IPFS",
		slog.String("path", mfsPath),
		slog.String("contentType", info.ContentType))

	return nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

// PublicURL resolves the item's CID and returns its gateway URL.
func (b *IPFSBackend) PublicURL(itemPath string) string {
	if b.gateway == "" {
		return ""
	}
	stat, err := b.shell.FilesStat(context.Background(), b.getMFSPath(itemPath))
	if err != nil {
		b.log.Debug("Failed to stat IPFS item", slog.String("path", itemPath), "err", err)
		return ""
	}
	return fmt.Sprintf("%s/ipfs/%s", b.gateway, stat.Hash)
}

// getMFSPath maps an item path into the backend root.
func (b *IPFSBackend) getMFSPath(itemPath string) string {
	return path.Join(b.root, path.Clean("/"+itemPath))
}
