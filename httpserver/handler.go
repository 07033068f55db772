package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/storageitem-service/api"
	"github.com/ruteri/storageitem-service/interfaces"
	"github.com/ruteri/storageitem-service/upload"
)

const (
	FileParameterName    = api.FileParameterName
	StorageParameterName = api.StorageParameterName

	// DefaultUploadPath is the path UploadFilter intercepts when none is configured.
	DefaultUploadPath = api.DefaultUploadPath
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	StatusCode int
	Stage      string
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Ingester creates storage items from requests.
type Ingester interface {
	Ingest(ctx context.Context, r *http.Request, fieldName, storageName string) (*interfaces.StorageItem, error)
}

// Backends resolves named storage backends for the fetch route.
type Backends interface {
	Backend(name string) (interfaces.StorageBackend, error)
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// UploadPath is the exact URL path intercepted by UploadFilter.
	UploadPath string
	// MaxUploadBytes caps the request body. Zero disables the cap.
	MaxUploadBytes int64
	// MaxMemory is the multipart memory threshold. Zero uses upload.DefaultMaxMemory.
	MaxMemory int64
}

// Handler serves uploads and stored items.
type Handler struct {
	ingester   Ingester
	backends   Backends
	uploadPath string
	maxBytes   int64
	maxMemory  int64
	log        *slog.Logger
}

func NewHandler(ingester Ingester, backends Backends, cfg HandlerConfig, log *slog.Logger) *Handler {
	if cfg.UploadPath == "" {
		cfg.UploadPath = DefaultUploadPath
	}
	if cfg.MaxMemory <= 0 {
		cfg.MaxMemory = upload.DefaultMaxMemory
	}
	return &Handler{
		ingester:   ingester,
		backends:   backends,
		uploadPath: cfg.UploadPath,
		maxBytes:   cfg.MaxUploadBytes,
		maxMemory:  cfg.MaxMemory,
		log:        log,
	}
}

// UploadFilter intercepts requests to the upload path and answers them with
// the ingested storage item as JSON, or null when the request names no upload.
// Every other request is passed to next.
func (h *Handler) UploadFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != h.uploadPath {
			next.ServeHTTP(w, r)
			return
		}
		h.HandleUpload(w, r)
	})
}

// HandleUpload ingests the upload named by the fileParameter request parameter.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	if err := r.ParseMultipartForm(h.maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.writeError(w, r, fmt.Errorf("%w: %w", upload.ErrMalformedRequest, err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	fieldName := requestParam(r, FileParameterName)
	if fieldName == "" {
		h.writeError(w, r, upload.ErrBlankFieldName)
		return
	}
	storageName := requestParam(r, StorageParameterName)

	item, err := h.ingester.Ingest(r.Context(), r, fieldName, storageName)
	if err != nil {
		var hookErr *upload.HookError
		if item != nil && errors.As(err, &hookErr) && hookErr.Stage == upload.StagePostSave {
			h.log.Error("Post-save hook failed", "err", err, "storage", item.Storage(), "path", item.Path())
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: err.Error(),
				Stage: string(upload.StagePostSave),
				Item:  item,
			})
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// HandleFetch streams a stored object back to the client.
//
// URL format: GET /_dari/storage/{storage}/{path...}
func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	storageName := chi.URLParam(r, "storage")
	itemPath := chi.URLParam(r, "*")
	if itemPath == "" {
		http.Error(w, "Missing item path", http.StatusBadRequest)
		return
	}

	backend, err := h.backends.Backend(storageName)
	if err != nil {
		http.Error(w, "Storage not found", http.StatusNotFound)
		return
	}

	data, err := backend.Fetch(r.Context(), itemPath)
	switch {
	case errors.Is(err, interfaces.ErrContentNotFound):
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	case errors.Is(err, interfaces.ErrInvalidPath):
		http.Error(w, "Invalid item path", http.StatusBadRequest)
		return
	case err != nil:
		h.log.Error("Failed to fetch stored item", "err", err, "storage", storageName, "path", itemPath)
		http.Error(w, "Failed to fetch item", http.StatusBadGateway)
		return
	}
	defer data.Close()

	if contentType := mime.TypeByExtension(path.Ext(itemPath)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, data); err != nil {
		h.log.Warn("Failed to stream stored item", "err", err, "storage", storageName, "path", itemPath)
	}
}

type errorResponse struct {
	Error string                  `json:"error"`
	Stage string                  `json:"stage"`
	Item  *interfaces.StorageItem `json:"item,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqErr := toRequestError(err)
	if reqErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("Upload failed", "err", err, "path", r.URL.Path, "stage", reqErr.Stage)
	} else {
		h.log.Debug("Upload rejected", "err", err, "path", r.URL.Path, "stage", reqErr.Stage)
	}
	writeJSON(w, reqErr.StatusCode, errorResponse{Error: err.Error(), Stage: reqErr.Stage})
}

// toRequestError maps an ingestion error to a status code and pipeline stage.
func toRequestError(err error) *RequestError {
	stage := "request"
	var hookErr *upload.HookError
	if errors.As(err, &hookErr) {
		stage = string(hookErr.Stage)
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Stage: stage, Err: err}
	case errors.Is(err, interfaces.ErrUnknownStorage):
		return &RequestError{StatusCode: http.StatusNotFound, Stage: stage, Err: err}
	case errors.Is(err, upload.ErrBlankFieldName):
		// The field name comes from the fileParameter request parameter.
		return &RequestError{StatusCode: http.StatusBadRequest, Stage: stage, Err: err}
	}

	switch upload.Classify(err) {
	case upload.ClassInvalid:
		return &RequestError{StatusCode: http.StatusBadRequest, Stage: stage, Err: err}
	case upload.ClassConfiguration:
		return &RequestError{StatusCode: http.StatusInternalServerError, Stage: stage, Err: err}
	case upload.ClassIO:
		if errors.Is(err, upload.ErrSave) {
			return &RequestError{StatusCode: http.StatusBadGateway, Stage: "save", Err: err}
		}
		return &RequestError{StatusCode: http.StatusInternalServerError, Stage: "staging", Err: err}
	default:
		return &RequestError{StatusCode: http.StatusInternalServerError, Stage: stage, Err: err}
	}
}

// requestParam reads a parameter from the query string, then the parsed form.
func requestParam(r *http.Request, name string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(name)); v != "" {
		return v
	}
	return strings.TrimSpace(r.FormValue(name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
