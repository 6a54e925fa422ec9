// Package metrics exposes the optional Prometheus instrumentation named
// in SPEC_FULL §4.13: files indexed, parse failures by language, resolver
// confidence, and pack generation duration by pack type.
//
// Grounded on standardbeagle-lci has no prometheus dependency at all, so
// this package is grounded instead on vjache-cie's cmd/cie/index.go,
// which gates a promhttp.Handler-backed HTTP endpoint behind a
// --metrics-addr flag (mcp.metrics_addr here) and runs it in its own
// goroutine alongside the main server loop.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments §4.13 names, registered on a private
// Registry rather than the global default one so embedding this module
// in another binary never collides with its metrics.
type Metrics struct {
	registry *prometheus.Registry

	FilesIndexed       prometheus.Counter
	ParseFailures       *prometheus.CounterVec // labeled by language
	ResolverConfidence  prometheus.Histogram
	PackDuration        *prometheus.HistogramVec // labeled by pack type
}

// New builds a Metrics with every instrument registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		FilesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pui",
			Subsystem: "index",
			Name:      "files_indexed_total",
			Help:      "Files successfully parsed and persisted by the Indexer.",
		}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pui",
			Subsystem: "index",
			Name:      "parse_failures_total",
			Help:      "Parse failures, labeled by language.",
		}, []string{"language"}),
		ResolverConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pui",
			Subsystem: "resolve",
			Name:      "edge_confidence",
			Help:      "Confidence assigned to resolved edges.",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
		}),
		PackDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pui",
			Subsystem: "pack",
			Name:      "generation_seconds",
			Help:      "Pack generation duration, labeled by pack type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
	reg.MustRegister(m.FilesIndexed, m.ParseFailures, m.ResolverConfidence, m.PackDuration)
	return m
}

// ObservePackDuration records how long generating a pack of the given
// type took.
func (m *Metrics) ObservePackDuration(packType string, d time.Duration) {
	m.PackDuration.WithLabelValues(packType).Observe(d.Seconds())
}

// Serve runs the /metrics HTTP endpoint until ctx is cancelled, matching
// vjache-cie's http.Server + ReadHeaderTimeout shape.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
