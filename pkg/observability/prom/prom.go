// Package prom implements the observability hooks with Prometheus
// collectors.
//
//	m := prom.New(prometheus.NewRegistry())
//	m.Register()
//	http.Handle("/metrics", m.Handler())
package prom

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/rankbars/pkg/observability"
)

const namespace = "rankbars"

// Metrics implements every hook interface of [observability].
type Metrics struct {
	reg prometheus.Gatherer

	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	loadRecords  prometheus.Gauge
	diffSize     *prometheus.GaugeVec

	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec

	cycles      prometheus.Counter
	transitions *prometheus.CounterVec
	cancelled   prometheus.Counter
	clicks      prometheus.Counter

	cacheOps  *prometheus.CounterVec
	cacheSize *prometheus.HistogramVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,

		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "loads_total",
			Help: "Snapshot loads by status",
		}, []string{"status"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "load_duration_seconds",
			Help:    "Snapshot load latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		loadRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "last_load_records",
			Help: "Record count of the most recently loaded snapshot",
		}),
		diffSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "diff_size",
			Help: "Entries and exits of the most recent diff per year",
		}, []string{"year", "kind"}),

		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "renders_total",
			Help: "Artifact renders by formats and status",
		}, []string{"formats", "status"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "render_duration_seconds",
			Help:    "Artifact render latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"formats"}),

		cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chart", Name: "cycles_total",
			Help: "Chart render cycles",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chart", Name: "transitions_total",
			Help: "Row transitions by kind",
		}, []string{"kind"}),
		cancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chart", Name: "cancelled_tracks_total",
			Help: "In-flight transitions superseded by a newer cycle",
		}),
		clicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chart", Name: "clicks_total",
			Help: "Row activations forwarded to the host",
		}),

		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "operations_total",
			Help: "Cache operations by key type and result",
		}, []string{"key_type", "result"}),
		cacheSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "cache", Name: "entry_bytes",
			Help:    "Size of cache writes in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"key_type"}),

		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP responses by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "errors_total",
			Help: "Handler errors surfaced to clients",
		}, []string{"method", "route"}),
	}
}

// Register installs m as the pipeline, chart, cache and HTTP hooks.
func (m *Metrics) Register() {
	observability.SetPipelineHooks(m)
	observability.SetChartHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnLoadStart(context.Context, int) {}

func (m *Metrics) OnLoadComplete(_ context.Context, _ int, records int, d time.Duration, err error) {
	m.loads.WithLabelValues(status(err)).Inc()
	m.loadDuration.Observe(d.Seconds())
	if err == nil {
		m.loadRecords.Set(float64(records))
	}
}

func (m *Metrics) OnDiffComplete(_ context.Context, year int, entries, exits int) {
	y := strconv.Itoa(year)
	m.diffSize.WithLabelValues(y, "entries").Set(float64(entries))
	m.diffSize.WithLabelValues(y, "exits").Set(float64(exits))
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	f := strings.Join(formats, ",")
	m.renders.WithLabelValues(f, status(err)).Inc()
	m.renderDuration.WithLabelValues(f).Observe(d.Seconds())
}

func (m *Metrics) OnCycle(_ context.Context, enter, update, exit, cancelled int) {
	m.cycles.Inc()
	m.transitions.WithLabelValues("enter").Add(float64(enter))
	m.transitions.WithLabelValues("update").Add(float64(update))
	m.transitions.WithLabelValues("exit").Add(float64(exit))
	m.cancelled.Add(float64(cancelled))
}

func (m *Metrics) OnClick(context.Context, string) { m.clicks.Inc() }

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheSize.WithLabelValues(keyType).Observe(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, route string, _ error) {
	m.errors.WithLabelValues(method, route).Inc()
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.ChartHooks    = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
