package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all scanner pipeline metrics
type Metrics struct {
	// Capture pipeline counters
	FramesEnqueued  atomic.Uint64
	FramesScored    atomic.Uint64
	FramesSelected  atomic.Uint64
	FramesDiscarded atomic.Uint64
	FramesDropped   atomic.Uint64 // malformed frames dropped mid-cycle

	// Persistence counters
	ImagesSaved     atomic.Uint64
	SaveErrors      atomic.Uint64
	ShardRollovers  atomic.Uint64
	CurrentShard    atomic.Uint64
	QueueDepth      atomic.Uint64
	SaveCycles      atomic.Uint64
	SaveCycleMs     atomic.Uint64 // duration of the last save cycle

	// GPS counters
	GPSFixes       atomic.Uint64
	GPSParseErrors atomic.Uint64

	// Alert counters
	AlertsDispatched atomic.Uint64
	AlertsSuppressed atomic.Uint64

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"scanner_frames_enqueued_total", "Total frames enqueued for saving", m.FramesEnqueued.Load},
		{"scanner_frames_scored_total", "Total frames scored during save cycles", m.FramesScored.Load},
		{"scanner_frames_selected_total", "Total frames selected for persistence", m.FramesSelected.Load},
		{"scanner_frames_discarded_total", "Total frames discarded by top-K selection", m.FramesDiscarded.Load},
		{"scanner_frames_dropped_total", "Total malformed frames dropped", m.FramesDropped.Load},
		{"scanner_images_saved_total", "Total annotated images written to disk", m.ImagesSaved.Load},
		{"scanner_save_errors_total", "Total image write failures", m.SaveErrors.Load},
		{"scanner_shard_rollovers_total", "Total shard directory advances", m.ShardRollovers.Load},
		{"scanner_current_shard", "Index of the shard currently written to", m.CurrentShard.Load},
		{"scanner_queue_depth", "Frames waiting in the capture queue", m.QueueDepth.Load},
		{"scanner_save_cycles_total", "Total scheduler save cycles", m.SaveCycles.Load},
		{"scanner_save_cycle_ms", "Duration of the last save cycle in milliseconds", m.SaveCycleMs.Load},
		{"scanner_gps_fixes_total", "Total valid GPS fixes applied", m.GPSFixes.Load},
		{"scanner_gps_parse_errors_total", "Total malformed GPS sentences skipped", m.GPSParseErrors.Load},
		{"scanner_alerts_dispatched_total", "Total alert notifications dispatched", m.AlertsDispatched.Load},
		{"scanner_alerts_suppressed_total", "Total alerts suppressed by cooldown", m.AlertsSuppressed.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
