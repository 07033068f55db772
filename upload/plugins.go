package upload

import "github.com/ruteri/storageitem-service/registry"

// Plugins holds the extension points of the ingestion pipeline.
type Plugins struct {
	PreValidate    *registry.Capability[PreValidateHook]
	PreSave        *registry.Capability[PreSaveHook]
	PostSave       *registry.Capability[PostSaveHook]
	PathGenerators *registry.Capability[PathGenerator]
}

// NewPlugins creates an empty plugin set.
func NewPlugins() *Plugins {
	return &Plugins{
		PreValidate:    registry.NewCapability[PreValidateHook](string(StagePreValidate)),
		PreSave:        registry.NewCapability[PreSaveHook](string(StagePreSave)),
		PostSave:       registry.NewCapability[PostSaveHook](string(StagePostSave)),
		PathGenerators: registry.NewCapability[PathGenerator]("path-generator"),
	}
}

// DefaultPlugins is the process-wide plugin set, filled during startup.
var DefaultPlugins = NewPlugins()
