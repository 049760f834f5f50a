// Package metrics exports crawl and scan counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lazyscan"

// Collector records progress and findings. It is both an application
// observer and a finding reporter.
type Collector struct {
	registry  *prometheus.Registry
	processed *prometheus.CounterVec
	links     prometheus.Counter
	layers    prometheus.Counter
	layerSize prometheus.Gauge
	duration  prometheus.Histogram
	findings  *prometheus.CounterVec
}

// NewCollector creates a collector on its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_processed_total",
			Help:      "URLs processed, by fetch status.",
		}, []string{"status"}),
		links: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_discovered_total",
			Help:      "Joined links handed to the frontier.",
		}),
		layers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layers_total",
			Help:      "Layers started.",
		}),
		layerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layer_size",
			Help:      "URLs in the current layer.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "url_duration_seconds",
			Help:      "Time spent processing one URL.",
			Buckets:   prometheus.DefBuckets,
		}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Findings reported, by target and kind.",
		}, []string{"target", "kind"}),
	}

	c.registry.MustRegister(c.processed, c.links, c.layers, c.layerSize, c.duration, c.findings)
	return c
}

// Registry returns the registry the collector registers on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// OnLayerStart implements application.Observer
func (c *Collector) OnLayerStart(_, size int) {
	c.layers.Inc()
	c.layerSize.Set(float64(size))
}

// OnURLProcessed implements application.Observer
func (c *Collector) OnURLProcessed(result entity.JobResult) {
	status := "ok"
	if result.Err != nil {
		status = "error"
	}
	c.processed.WithLabelValues(status).Inc()
	c.links.Add(float64(result.Links))
	c.duration.Observe(result.Duration.Seconds())
}

// OnLayerDone implements application.Observer
func (c *Collector) OnLayerDone(int) {
	c.layerSize.Set(0)
}

// Report implements fingerprint.Reporter
func (c *Collector) Report(finding entity.Finding) error {
	c.findings.WithLabelValues(finding.Target, string(finding.Kind)).Inc()
	return nil
}

// Handler serves the collector's metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exports the metrics on addr under /metrics until ctx is done
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
