package upload

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/ruteri/storageitem-service/api"
)

// StorageNameHeader is the multipart part header a client can use to request
// a storage for that part.
const StorageNameHeader = api.StorageNameHeader

// Part is one incoming upload before it becomes a storage item.
// FormField selects whether Value or the byte source is meaningful.
type Part struct {
	FieldName        string
	Name             string
	ContentType      string
	Size             int64
	FormField        bool
	Value            string
	RequestedStorage string

	open func() (io.ReadCloser, error)
}

// NewFilePart wraps a decoded multipart file.
func NewFilePart(fieldName string, fh *multipart.FileHeader) *Part {
	return &Part{
		FieldName:        fieldName,
		Name:             fh.Filename,
		ContentType:      fh.Header.Get("Content-Type"),
		Size:             fh.Size,
		RequestedStorage: strings.TrimSpace(fh.Header.Get(StorageNameHeader)),
		open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// NewReaderPart builds a file part from an arbitrary single-use byte source.
func NewReaderPart(fieldName, name, contentType string, size int64, open func() (io.ReadCloser, error)) *Part {
	return &Part{
		FieldName:   fieldName,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		open:        open,
	}
}

// NewValuePart wraps a plain form value.
func NewValuePart(fieldName, value string) *Part {
	return &Part{
		FieldName: fieldName,
		FormField: true,
		Value:     value,
	}
}

// Open returns the part's byte source. It must be called at most once.
func (p *Part) Open() (io.ReadCloser, error) {
	if p.FormField || p.open == nil {
		return io.NopCloser(strings.NewReader(p.Value)), nil
	}
	return p.open()
}

func (p *Part) label() string {
	switch {
	case strings.TrimSpace(p.Name) != "":
		return p.Name
	case p.FieldName != "":
		return p.FieldName
	default:
		return "file"
	}
}
