// Package sniff detects the content type of uploads from their leading bytes.
package sniff

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ruteri/storageitem-service/upload"
)

// Hook is a pre-save hook that fills in missing or generic content types.
type Hook struct {
	always bool
}

// New returns a hook replacing blank and application/octet-stream content types.
// With always set, the detected type replaces any declared type.
func New(always bool) *Hook {
	return &Hook{always: always}
}

// PreSave detects the staged file's type and stores it on the item.
func (h *Hook) PreSave(_ context.Context, sc *upload.StagingContext) error {
	item := sc.Item()
	if !h.always && !isGeneric(item.ContentType()) {
		return nil
	}

	f, err := sc.Staged().Open()
	if err != nil {
		return fmt.Errorf("failed to open staged upload: %w", err)
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("failed to detect content type: %w", err)
	}

	return item.SetContentType(detected.String())
}

func isGeneric(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	return mediaType == "application/octet-stream"
}
