// Package registry holds process-wide plugin registrations for the upload pipeline.
//
// Each extension point is a typed Capability. Plugins register a zero-argument
// factory under a unique name, usually during process startup:
//
//	var PreSave = registry.NewCapability[upload.PreSaveHook]("pre-save")
//
//	PreSave.MustRegister("digest", func() upload.PreSaveHook { return digest.New() })
//
// Discover instantiates factories lazily, caches the instances, and returns them
// in registration order, so hook execution order is stable for the lifetime of
// the process. Registering the same name twice fails with ErrDuplicatePlugin.
package registry
