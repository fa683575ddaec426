// Package metrics exposes run and widget counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caffeineduck/coderunner/runner"
)

// Recorder collects snippet runner metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	widgets  prometheus.Gauge
}

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "coderunner", Name: "runs_total", Help: "Snippet runs by backend and final state."},
			[]string{"backend", "state"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coderunner",
				Name:      "run_duration_seconds",
				Help:      "Snippet run latency by backend.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"backend"},
		),
		widgets: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: "coderunner", Name: "widgets_active", Help: "Widgets currently held by the server."},
		),
	}
	r.registry.MustRegister(r.runs, r.duration, r.widgets)
	return r
}

// Report implements runner.Reporter.
func (r *Recorder) Report(rep runner.Report) {
	r.runs.WithLabelValues(string(rep.Backend), rep.State.String()).Inc()
	r.duration.WithLabelValues(string(rep.Backend)).Observe(rep.Duration.Seconds())
}

// WidgetOpened counts a new widget.
func (r *Recorder) WidgetOpened() { r.widgets.Inc() }

// WidgetClosed counts a removed or expired widget.
func (r *Recorder) WidgetClosed() { r.widgets.Dec() }

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
