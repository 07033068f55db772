// Package storage provides a path-addressed storage system with pluggable backends.
//
// The storage package offers a unified interface for storing and retrieving
// upload content across multiple storage backends:
//
//   - File system storage for local development and single-node deployments
//   - S3-compatible storage for cloud deployments and CDN origins
//   - IPFS storage, writing into the node's mutable file system
//   - Vault storage for small, sensitive uploads
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/uploads/
//   - s3://bucket-name/prefix/?region=us-west-2&public=true
//   - ipfs://localhost:5001/uploads?gateway=https://ipfs.io
//   - vault://vault.example.com:8200/secret/uploads
//
// # Named Storages
//
// The upload pipeline addresses backends by storage name, not by URI. A
// Registry maps each configured name to a backend and creates unsaved
// storage items bound to it:
//
//	registry, err := storage.BuildRegistry(factory, map[string][]string{
//	    "local":  {"file:///var/lib/uploads"},
//	    "mirror": {"file:///var/lib/uploads", "s3://bucket/uploads/"},
//	}, "local", logger)
//
//	item, err := registry.CreateIn("mirror")
//
// # Multi-Backend Storage
//
// A storage configured with several locations becomes a MultiStorageBackend:
//
//   - Store: writes to all available backends concurrently, succeeds if any succeeds
//   - Fetch: tries each backend until content is found
//   - Available: returns true if any backend is available
package storage
