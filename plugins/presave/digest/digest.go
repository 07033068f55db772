// Package digest records content hashes of uploads in the item metadata.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ruteri/storageitem-service/upload"
	"golang.org/x/crypto/blake2b"
)

// Metadata keys written by the hook.
const (
	KeySHA256  = "sha256"
	KeyBlake2b = "blake2b-256"
	KeySize    = "size"
)

// Hook is a pre-save hook computing digests of the staged bytes.
type Hook struct{}

func New() *Hook {
	return &Hook{}
}

// PreSave hashes the staged file in one pass and stores the hex digests and size.
func (h *Hook) PreSave(_ context.Context, sc *upload.StagingContext) error {
	f, err := sc.Staged().Open()
	if err != nil {
		return fmt.Errorf("failed to open staged upload: %w", err)
	}
	defer f.Close()

	b2, err := blake2b.New256(nil)
	if err != nil {
		return err
	}
	s256 := sha256.New()

	n, err := io.Copy(io.MultiWriter(s256, b2), f)
	if err != nil {
		return fmt.Errorf("failed to hash staged upload: %w", err)
	}

	item := sc.Item()
	for k, v := range map[string]any{
		KeySHA256:  hex.EncodeToString(s256.Sum(nil)),
		KeyBlake2b: hex.EncodeToString(b2.Sum(nil)),
		KeySize:    n,
	} {
		if err := item.PutMetadata(k, v); err != nil {
			return err
		}
	}
	return nil
}
