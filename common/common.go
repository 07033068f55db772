// Package common holds build information and logging setup shared by commands.
package common

// PackageName is used as the Prometheus namespace.
const PackageName = "storageitem"

// Version is set at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"
