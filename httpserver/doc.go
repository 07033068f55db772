/*
Package httpserver implements the HTTP front end of the storage item upload service.

Uploads are intercepted by the UploadFilter middleware before routing. A request to
the configured upload path names the form field holding the upload with the
fileParameter parameter and may override the target storage with storageName. Both
are read from the query string first, then from the url-encoded or multipart form.

The field may hold either a file part, which is staged, run through the hook
pipeline and saved, or a JSON reference to an object that already exists:

	{"storage": "local", "path": "ab/cd/0190f3/photo.png", "contentType": "image/png"}

The response is the storage item as JSON, or null when the request carries no such
field. Failures are answered with a JSON body:

	{"error": "empty upload: file [a.txt] is empty", "stage": "request"}

A failure in a post-save hook happens after the item was stored, so its body also
carries the saved item under "item".

# Endpoints

  - POST /_dari/upload - Ingest an upload (path configurable)
  - GET /_dari/storage/{storage}/{path...} - Stream a stored item
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/pprof - Profiling, when enabled

# Example Usage

	metricsSrv, err := metrics.New(common.PackageName, ":9090")
	if err != nil {
		return err
	}

	factory := upload.NewFactory(storages, upload.DefaultPlugins, upload.Config{
		Metrics: metricsSrv.Upload(),
	}, logger)
	handler := httpserver.NewHandler(factory, storages, httpserver.HandlerConfig{
		MaxUploadBytes: 32 << 20,
	}, logger)

	server, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:    ":8080",
		MetricsAddr:   ":9090",
		MetricsServer: metricsSrv,
		Log:           logger,
	}, handler)
	if err != nil {
		return err
	}

	server.RunInBackground()
	defer server.Shutdown()
*/
package httpserver
