package upload

import (
	"context"
	"os"

	"github.com/ruteri/storageitem-service/interfaces"
)

// StagedFile is the read-only view of a staged upload given to hooks.
type StagedFile interface {
	Open() (*os.File, error)
	Size() int64
	Name() string
}

// StagingContext is the state of one in-flight upload, shared by all hooks.
// Fields are populated in pipeline order: the staged file before pre-validate,
// the storage before path generation, and the item before pre-save.
type StagingContext struct {
	part    *Part
	staged  StagedFile
	storage string
	item    *interfaces.StorageItem
}

// Part returns the upload being ingested.
func (c *StagingContext) Part() *Part { return c.part }

// Staged returns the staged copy of the upload bytes.
func (c *StagingContext) Staged() StagedFile { return c.staged }

// Storage returns the resolved storage name.
func (c *StagingContext) Storage() string { return c.storage }

// Item returns the storage item, or nil during pre-validate.
func (c *StagingContext) Item() *interfaces.StorageItem { return c.item }

// PreValidateHook checks an upload before a storage item exists.
type PreValidateHook interface {
	PreValidate(ctx context.Context, sc *StagingContext) error
}

// PreSaveHook runs after path generation and before the backend write.
// It may still change the item's content type and metadata.
type PreSaveHook interface {
	PreSave(ctx context.Context, sc *StagingContext) error
}

// PostSaveHook runs after the item was persisted. Failures are reported but
// the item stays saved.
type PostSaveHook interface {
	PostSave(ctx context.Context, sc *StagingContext) error
}
