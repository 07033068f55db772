package api

import (
	"context"
	"io"
)

// Request parameters understood by the upload endpoint.
const (
	// FileParameterName names the request parameter holding the upload field name.
	FileParameterName = "fileParameter"

	// StorageParameterName names the request parameter overriding the storage.
	StorageParameterName = "storageName"

	// StorageNameHeader is the multipart part header requesting a storage for that part.
	StorageNameHeader = "X-Storage-Name"

	// DefaultUploadPath is the default upload endpoint path.
	DefaultUploadPath = "/_dari/upload"

	// StoragePathPrefix prefixes the route serving stored items back.
	StoragePathPrefix = "/_dari/storage/"
)

// Item is the JSON form of a storage item.
type Item struct {
	Storage     string         `json:"storage"`
	Path        string         `json:"path"`
	ContentType string         `json:"contentType,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	PublicURL   string         `json:"publicUrl,omitempty"`
}

// Reference points at an object that already exists in a storage. It is sent
// as a form value in place of a file.
type Reference struct {
	Storage     string         `json:"storage,omitempty"`
	Path        string         `json:"path"`
	ContentType string         `json:"contentType,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ErrorResponse is the body of every failed upload request.
type ErrorResponse struct {
	Error string `json:"error"`
	// Stage is "request", "staging", "save" or a hook stage such as "post-save".
	Stage string `json:"stage"`
	// Item is set only for post-save failures, when the item was already stored.
	Item *Item `json:"item,omitempty"`
}

// UploadProvider uploads files and references to a storage item service.
type UploadProvider interface {
	Upload(ctx context.Context, req *UploadRequest) (*Item, error)
	Reference(ctx context.Context, fieldName string, ref Reference) (*Item, error)
}

// UploadRequest describes one file upload.
type UploadRequest struct {
	// FieldName is the multipart field carrying the file. Defaults to "file".
	FieldName   string
	FileName    string
	ContentType string
	Data        io.Reader

	// Storage overrides the storage for the whole request.
	Storage string
	// PartStorage is sent as the X-Storage-Name header of the file part.
	PartStorage string
}
