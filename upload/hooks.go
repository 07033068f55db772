package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

func (f *Factory) runPreValidate(ctx context.Context, sc *StagingContext) error {
	part := sc.part
	if strings.TrimSpace(part.Name) == "" {
		return fmt.Errorf("%w: field [%s] has no file name", ErrEmptyUpload, part.FieldName)
	}
	if part.Size <= 0 {
		return fmt.Errorf("%w: file [%s] is empty", ErrEmptyUpload, part.Name)
	}

	for _, e := range f.plugins.PreValidate.Entries() {
		if err := e.Plugin.PreValidate(ctx, sc); err != nil {
			return f.hookFailed(StagePreValidate, e.Name, sc, err)
		}
	}
	return nil
}

func (f *Factory) runPreSave(ctx context.Context, sc *StagingContext) error {
	for _, e := range f.plugins.PreSave.Entries() {
		if err := e.Plugin.PreSave(ctx, sc); err != nil {
			return f.hookFailed(StagePreSave, e.Name, sc, err)
		}
	}
	return nil
}

func (f *Factory) runPostSave(ctx context.Context, sc *StagingContext) error {
	for _, e := range f.plugins.PostSave.Entries() {
		if err := e.Plugin.PostSave(ctx, sc); err != nil {
			return f.hookFailed(StagePostSave, e.Name, sc, err)
		}
	}
	return nil
}

func (f *Factory) hookFailed(stage Stage, hook string, sc *StagingContext, err error) error {
	f.log.Warn("Upload hook failed",
		slog.String("stage", string(stage)),
		slog.String("hook", hook),
		slog.String("file", sc.part.label()),
		slog.String("storage", sc.storage),
		"err", err)
	f.metrics.HookFailed(string(stage), hook)

	return &HookError{Stage: stage, Hook: hook, Err: err}
}
