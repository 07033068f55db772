// Package imagesize records the pixel dimensions of image uploads.
package imagesize

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ruteri/storageitem-service/upload"
)

// Metadata keys written by the hook.
const (
	KeyWidth  = "width"
	KeyHeight = "height"
)

// Hook is a pre-save hook reading image headers. Non-image content and
// unsupported formats are left untouched.
type Hook struct{}

func New() *Hook {
	return &Hook{}
}

func (h *Hook) PreSave(_ context.Context, sc *upload.StagingContext) error {
	item := sc.Item()
	if !strings.HasPrefix(strings.ToLower(item.ContentType()), "image/") {
		return nil
	}

	f, err := sc.Staged().Open()
	if err != nil {
		return fmt.Errorf("failed to open staged upload: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		// svg, heic and friends
		return nil
	}

	if err := item.PutMetadata(KeyWidth, cfg.Width); err != nil {
		return err
	}
	return item.PutMetadata(KeyHeight, cfg.Height)
}
