// Package main (cmd/upload_client) is a command line client for the upload server.
//
//	upload-client --server-addr=http://127.0.0.1:8080 upload --storage cdn ./photo.png
//	upload-client reference --storage cdn 2024/05/17/photo.png
//	upload-client fetch cdn 2024/05/17/photo.png > photo.png
package main
