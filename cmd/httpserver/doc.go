// Package main (cmd/httpserver) runs the storage item upload server.
//
// Storages are configured with a YAML file, with repeatable --storage name=uri
// flags, or both; flags replace file entries of the same name. Repeating a name
// mirrors writes to every listed location.
//
// Example usage:
//
//	storageitem-server --listen-addr=0.0.0.0:8080 \
//	    --storage local=file:///var/lib/uploads \
//	    --storage cdn=s3://bucket/uploads/?region=us-east-1 \
//	    --default-storage local \
//	    --max-file-size 10485760 \
//	    --path-strategy dated
//
// Every flag has an UPLOAD_ environment variable counterpart.
package main
