// Package metrics exposes load measurements in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/fileopen/internal/charset"
)

// Metrics holds the collectors for file loads. It satisfies
// core.LoadRecorder.
type Metrics struct {
	reg *prometheus.Registry

	loads        *prometheus.CounterVec
	bytesRead    prometheus.Counter
	duration     *prometheus.HistogramVec
	unrecognized prometheus.Counter
}

// New registers the load collectors, plus the Go runtime and process
// collectors, on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fileopen_loads_total",
			Help: "File loads by outcome (text, binary, error) and decoding path (explicit, heuristic).",
		}, []string{"kind", "path"}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "fileopen_bytes_read_total",
			Help: "Bytes read from disk by successful loads.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fileopen_load_duration_seconds",
			Help:    "Time spent loading one file.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"path"}),
		unrecognized: factory.NewCounter(prometheus.CounterOpts{
			Name: "fileopen_unrecognized_encoding_labels_total",
			Help: "Requests naming an encoding label that is not recognized.",
		}),
	}
}

// ObserveLoad records one load.
func (m *Metrics) ObserveLoad(kind, path string, bytes int64, d time.Duration) {
	m.loads.WithLabelValues(kind, path).Inc()
	if bytes > 0 {
		m.bytesRead.Add(float64(bytes))
	}
	m.duration.WithLabelValues(path).Observe(d.Seconds())
}

// UnrecognizedLabel counts a request with an unknown encoding label.
func (m *Metrics) UnrecognizedLabel() {
	m.unrecognized.Inc()
}

// CountCharsetFallbacks counts every label charset.Resolve falls back on
// in fileopen_unrecognized_encoding_labels_total.
func (m *Metrics) CountCharsetFallbacks() {
	charset.OnFallback(func(string) { m.UnrecognizedLabel() })
}

// TrackActiveLoads exports fn as the fileopen_active_loads gauge.
func (m *Metrics) TrackActiveLoads(fn func() int) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fileopen_active_loads",
		Help: "Loads currently holding a limiter slot.",
	}, func() float64 { return float64(fn()) })
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
