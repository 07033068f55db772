// Package interfaces defines the storage types shared by the upload pipeline,
// the storage backends and the HTTP layer.
//
// # Storage items
//
// A StorageItem is the durable record produced by an upload: a path within a
// named backend, an optional content type and optional metadata. Items are
// created unsaved, receive a byte source, and are saved exactly once:
//
//	item := interfaces.NewStorageItem("local", backend)
//	item.SetPath("ab/cd/0190f3.../photo.png")
//	item.SetContentType("image/png")
//	item.SetData(file)
//	err := item.Save(ctx)
//
// After Save the path and storage are fixed and setters return ErrItemSaved.
//
// # Storage backends
//
// The StorageBackend interface represents any system that can store and
// retrieve bytes by path:
//
//	type StorageBackend interface {
//	    Fetch(ctx context.Context, path string) (io.ReadCloser, error)
//	    Store(ctx context.Context, path string, data io.Reader, info ObjectInfo) error
//	    Available(ctx context.Context) bool
//	    Name() string
//	    LocationURI() string
//	}
//
// Backends are located by URI, for example file:///var/lib/uploads or
// s3://bucket/prefix/?region=us-east-1. See package storage for the
// implementations.
package interfaces
