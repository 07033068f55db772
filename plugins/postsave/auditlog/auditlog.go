// Package auditlog writes one structured log line per saved storage item.
package auditlog

import (
	"context"
	"log/slog"

	"github.com/ruteri/storageitem-service/upload"
)

type Hook struct {
	log *slog.Logger
}

// New returns a post-save hook logging to log.
func New(log *slog.Logger) *Hook {
	return &Hook{log: log}
}

func (h *Hook) PostSave(ctx context.Context, sc *upload.StagingContext) error {
	item := sc.Item()
	part := sc.Part()

	h.log.InfoContext(ctx, "Storage item saved",
		slog.String("storage", item.Storage()),
		slog.String("path", item.Path()),
		slog.String("contentType", item.ContentType()),
		slog.String("field", part.FieldName),
		slog.String("fileName", part.Name),
		slog.Int64("size", sc.Staged().Size()),
		slog.Any("metadata", item.Metadata()))
	return nil
}
