// Package metrics exposes Prometheus collectors on a dedicated HTTP server.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves /metrics from its own registry.
type MetricsServer struct {
	registry *prometheus.Registry
	srv      *http.Server
	upload   *UploadMetrics
}

// New creates a metrics server listening on addr. namespace prefixes every
// application metric.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	upload, err := NewUploadMetrics(namespace, registry)
	if err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		registry: registry,
		upload:   upload,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Registry returns the registry backing the server.
func (m *MetricsServer) Registry() *prometheus.Registry {
	return m.registry
}

// Upload returns the ingestion collectors.
func (m *MetricsServer) Upload() *UploadMetrics {
	return m.upload
}

// Handler returns the HTTP handler serving /metrics.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
