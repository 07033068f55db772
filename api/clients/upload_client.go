package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/ruteri/storageitem-service/api"
)

// UploadError is returned for non-200 responses from the upload endpoint.
type UploadError struct {
	StatusCode int
	Stage      string
	Message    string
	// Item is set when the upload was stored but a post-save hook failed.
	Item *api.Item
}

func (e *UploadError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("upload failed at %s (%d): %s", e.Stage, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upload failed (%d): %s", e.StatusCode, e.Message)
}

// UploadClient implements api.UploadProvider over HTTP.
type UploadClient struct {
	// ServerAddr is the base URL of the upload server
	ServerAddr string

	// UploadPath defaults to api.DefaultUploadPath
	UploadPath string

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client
}

var _ api.UploadProvider = (*UploadClient)(nil)

// Upload streams a file to the server as a multipart request.
// A nil item with nil error means the server found no upload in the request.
func (c *UploadClient) Upload(ctx context.Context, req *api.UploadRequest) (*api.Item, error) {
	fieldName := req.FieldName
	if fieldName == "" {
		fieldName = "file"
	}

	body, writer := io.Pipe()
	mw := multipart.NewWriter(writer)

	go func() {
		writer.CloseWithError(writeFilePart(mw, fieldName, req))
	}()

	query := url.Values{api.FileParameterName: {fieldName}}
	if req.Storage != "" {
		query.Set(api.StorageParameterName, req.Storage)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL(query), body)
	if err != nil {
		body.Close()
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(httpReq)
}

// Reference registers an object that already exists in a storage.
// The returned item is not saved by the server.
func (c *UploadClient) Reference(ctx context.Context, fieldName string, ref api.Reference) (*api.Item, error) {
	encoded, err := json.Marshal(ref)
	if err != nil {
		return nil, fmt.Errorf("could not encode reference: %w", err)
	}

	form := url.Values{
		api.FileParameterName: {fieldName},
		fieldName:             {string(encoded)},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL(nil), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(httpReq)
}

// Fetch opens a stored item. Caller must close the returned reader.
func (c *UploadClient) Fetch(ctx context.Context, storage, itemPath string) (io.ReadCloser, error) {
	endpoint := strings.TrimSuffix(c.ServerAddr, "/") + api.StoragePathPrefix +
		url.PathEscape(storage) + "/" + strings.TrimPrefix(itemPath, "/")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("could not request storage endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("storage endpoint returned error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return resp.Body, nil
}

func (c *UploadClient) do(httpReq *http.Request) (*api.Item, error) {
	resp, err := c.client().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("could not request upload endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, &UploadError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return errResp.Item, &UploadError{
			StatusCode: resp.StatusCode,
			Stage:      errResp.Stage,
			Message:    errResp.Error,
			Item:       errResp.Item,
		}
	}

	var item *api.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("could not parse upload response: %w", err)
	}
	return item, nil
}

func (c *UploadClient) uploadURL(query url.Values) string {
	uploadPath := c.UploadPath
	if uploadPath == "" {
		uploadPath = api.DefaultUploadPath
	}
	endpoint := strings.TrimSuffix(c.ServerAddr, "/") + uploadPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

func (c *UploadClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, fieldName string, req *api.UploadRequest) error {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fieldName), quoteEscaper.Replace(req.FileName)))
	h.Set("Content-Type", contentType)
	if req.PartStorage != "" {
		h.Set(api.StorageNameHeader, req.PartStorage)
	}

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Data); err != nil {
		return err
	}
	return mw.Close()
}
