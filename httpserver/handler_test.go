package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ruteri/storageitem-service/interfaces"
	"github.com/ruteri/storageitem-service/staging"
	"github.com/ruteri/storageitem-service/storage"
	"github.com/ruteri/storageitem-service/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend *storage.FileBackend
	plugins *upload.Plugins
	handler *Handler
	server  *Server
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, cfg HandlerConfig) *fixture {
	t.Helper()
	log := testLogger()

	backend, err := storage.NewFileBackend(t.TempDir(), log)
	require.NoError(t, err)

	storages := storage.NewRegistry("local", log)
	require.NoError(t, storages.Add("local", backend))

	plugins := upload.NewPlugins()
	factory := upload.NewFactory(storages, plugins, upload.Config{TempDir: t.TempDir()}, log)
	handler := NewHandler(factory, storages, cfg, log)

	server, err := New(&HTTPServerConfig{Log: log}, handler)
	require.NoError(t, err)

	return &fixture{backend: backend, plugins: plugins, handler: handler, server: server}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)
	return rr
}

type postSaveFunc func(ctx context.Context, sc *upload.StagingContext) error

func (fn postSaveFunc) PostSave(ctx context.Context, sc *upload.StagingContext) error {
	return fn(ctx, sc)
}

// multipartBody encodes values as form fields and files as file parts keyed by field name.
func multipartBody(t *testing.T, values map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for name, value := range values {
		require.NoError(t, mw.WriteField(name, value))
	}
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".txt")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestUploadFilter_OtherPathsPassThrough(t *testing.T) {
	h := NewHandler(nil, nil, HandlerConfig{}, testLogger())

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	h.UploadFilter(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/_dari/upload/extra", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestHandleUpload_MultipartFile(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		values map[string]string
	}{
		{name: "parameter in query", query: "?fileParameter=file"},
		{name: "parameter in form", values: map[string]string{"fileParameter": "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, HandlerConfig{})

			body, contentType := multipartBody(t, tt.values, map[string][]byte{"file": []byte("hello world")})
			req := httptest.NewRequest(http.MethodPost, DefaultUploadPath+tt.query, body)
			req.Header.Set("Content-Type", contentType)

			rr := f.do(req)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			out := decodeJSON(t, rr)
			assert.Equal(t, "local", out["storage"])
			assert.Regexp(t, `^[0-9a-f]{2}/[0-9a-f]{2}/[0-9a-f]{28}/file\.txt$`, out["path"])

			stored, err := f.backend.Fetch(context.Background(), out["path"].(string))
			require.NoError(t, err)
			defer stored.Close()
			data, err := io.ReadAll(stored)
			require.NoError(t, err)
			assert.Equal(t, "hello world", string(data))
		})
	}
}

func TestHandleUpload_Reference(t *testing.T) {
	f := newFixture(t, HandlerConfig{})

	form := url.Values{
		"fileParameter": {"ref"},
		"ref":           {`{"path":"a/b.png","contentType":"image/png","metadata":{"k":"v"}}`},
	}
	req := httptest.NewRequest(http.MethodPost, DefaultUploadPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := f.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	out := decodeJSON(t, rr)
	assert.Equal(t, "local", out["storage"])
	assert.Equal(t, "a/b.png", out["path"])
	assert.Equal(t, "image/png", out["contentType"])
	assert.Equal(t, map[string]any{"k": "v"}, out["metadata"])
}

func TestHandleUpload_MissingFieldIsNull(t *testing.T) {
	f := newFixture(t, HandlerConfig{})

	rr := f.do(httptest.NewRequest(http.MethodGet, DefaultUploadPath+"?fileParameter=nothing", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "null", strings.TrimSpace(rr.Body.String()))
}

func TestHandleUpload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		cfg        HandlerConfig
		request    func(t *testing.T) *http.Request
		wantStatus int
		wantStage  string
	}{
		{
			name: "blank file parameter",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, DefaultUploadPath+"?fileParameter=%20", nil)
			},
			wantStatus: http.StatusBadRequest,
			wantStage:  "request",
		},
		{
			name: "unknown storage",
			request: func(t *testing.T) *http.Request {
				body, ct := multipartBody(t, nil, map[string][]byte{"file": []byte("x")})
				req := httptest.NewRequest(http.MethodPost, DefaultUploadPath+"?fileParameter=file&storageName=nope", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			wantStatus: http.StatusNotFound,
			wantStage:  "request",
		},
		{
			name: "empty file",
			request: func(t *testing.T) *http.Request {
				body, ct := multipartBody(t, nil, map[string][]byte{"file": {}})
				req := httptest.NewRequest(http.MethodPost, DefaultUploadPath+"?fileParameter=file", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantStage:  "request",
		},
		{
			name: "invalid reference",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, DefaultUploadPath+"?fileParameter=ref&ref=not-json", nil)
			},
			wantStatus: http.StatusBadRequest,
			wantStage:  "request",
		},
		{
			name: "body too large",
			cfg:  HandlerConfig{MaxUploadBytes: 1024},
			request: func(t *testing.T) *http.Request {
				body, ct := multipartBody(t, nil, map[string][]byte{"file": bytes.Repeat([]byte("x"), 8192)})
				req := httptest.NewRequest(http.MethodPost, DefaultUploadPath+"?fileParameter=file", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantStage:  "request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.cfg)

			rr := f.do(tt.request(t))
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			out := decodeJSON(t, rr)
			assert.Equal(t, tt.wantStage, out["stage"])
			assert.NotEmpty(t, out["error"])
			assert.NotContains(t, out, "item")
		})
	}
}

func TestHandleUpload_PostSaveFailureCarriesItem(t *testing.T) {
	f := newFixture(t, HandlerConfig{})
	require.NoError(t, f.plugins.PostSave.Register("notify", func() upload.PostSaveHook {
		return postSaveFunc(func(context.Context, *upload.StagingContext) error {
			return errors.New("notification service down")
		})
	}))

	body, ct := multipartBody(t, nil, map[string][]byte{"file": []byte("payload")})
	req := httptest.NewRequest(http.MethodPost, DefaultUploadPath+"?fileParameter=file", body)
	req.Header.Set("Content-Type", ct)

	rr := f.do(req)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	out := decodeJSON(t, rr)
	assert.Equal(t, "post-save", out["stage"])
	assert.Contains(t, out["error"], "notification service down")

	item, ok := out["item"].(map[string]any)
	require.True(t, ok, "post-save failures include the saved item")
	assert.Equal(t, "local", item["storage"])

	stored, err := f.backend.Fetch(context.Background(), item["path"].(string))
	require.NoError(t, err)
	stored.Close()
}

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) Ingest(ctx context.Context, r *http.Request, fieldName, storageName string) (*interfaces.StorageItem, error) {
	args := m.Called(ctx, r, fieldName, storageName)
	item, _ := args.Get(0).(*interfaces.StorageItem)
	return item, args.Error(1)
}

func TestHandleUpload_PassesParameters(t *testing.T) {
	ingester := new(mockIngester)
	ingester.On("Ingest", mock.Anything, mock.Anything, "photo", "cdn").Return(nil, nil).Once()

	h := NewHandler(ingester, nil, HandlerConfig{UploadPath: "/upload"}, testLogger())
	rr := httptest.NewRecorder()
	h.UploadFilter(http.NotFoundHandler()).ServeHTTP(rr,
		httptest.NewRequest(http.MethodGet, "/upload?fileParameter=photo&storageName=cdn", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	ingester.AssertExpectations(t)
}

func TestToRequestError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantStage  string
	}{
		{upload.ErrBlankFieldName, http.StatusBadRequest, "request"},
		{upload.ErrEmptyUpload, http.StatusBadRequest, "request"},
		{upload.ErrMissingPath, http.StatusBadRequest, "request"},
		{fmt.Errorf("%w: x", upload.ErrInvalidReference), http.StatusBadRequest, "request"},
		{fmt.Errorf("%w [nope]", interfaces.ErrUnknownStorage), http.StatusNotFound, "request"},
		{upload.ErrNoStorage, http.StatusInternalServerError, "request"},
		{upload.ErrAmbiguousPathGenerator, http.StatusInternalServerError, "request"},
		{fmt.Errorf("%w: disk full", upload.ErrSave), http.StatusBadGateway, "save"},
		{fmt.Errorf("%w [a.txt]: disk full", staging.ErrStaging), http.StatusInternalServerError, "staging"},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "request"},
		{
			&upload.HookError{Stage: upload.StagePreValidate, Hook: "size", Err: upload.ErrRejected},
			http.StatusBadRequest, "pre-validate",
		},
		{
			&upload.HookError{Stage: upload.StagePreSave, Hook: "digest", Err: errors.New("boom")},
			http.StatusInternalServerError, "pre-save",
		},
		{errors.New("unexpected"), http.StatusInternalServerError, "request"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			reqErr := toRequestError(tt.err)
			assert.Equal(t, tt.wantStatus, reqErr.StatusCode)
			assert.Equal(t, tt.wantStage, reqErr.Stage)
			assert.ErrorIs(t, reqErr, tt.err)
		})
	}
}

func TestHandleFetch(t *testing.T) {
	f := newFixture(t, HandlerConfig{})
	require.NoError(t, f.backend.Store(context.Background(), "docs/readme.txt", strings.NewReader("stored bytes"), interfaces.ObjectInfo{}))

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantBody   string
	}{
		{name: "stored item", url: "/_dari/storage/local/docs/readme.txt", wantStatus: http.StatusOK, wantBody: "stored bytes"},
		{name: "missing item", url: "/_dari/storage/local/docs/missing.txt", wantStatus: http.StatusNotFound},
		{name: "unknown storage", url: "/_dari/storage/nope/docs/readme.txt", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
				assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
			}
		})
	}
}
