package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "petreports"

// Metrics agrupa los collectors del pipeline en un registry propio
// (no el global) para que cada test tenga el suyo.
type Metrics struct {
	Registry *prometheus.Registry

	ReportRuns     *prometheus.CounterVec
	ReportDuration *prometheus.HistogramVec
	LookupAttempts *prometheus.CounterVec
	FanoutInflight *prometheus.GaugeVec

	// lado servicio
	UnreliableServed *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ReportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_runs_total",
			Help:      "Report executions by report and terminal status.",
		}, []string{"report", "status"}),
		ReportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Wall time of a report from start to sink write.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"report"}),
		LookupAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_attempts_total",
			Help:      "Attempts made by retrying point lookups, by outcome.",
		}, []string{"outcome"}),
		FanoutInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fanout_inflight",
			Help:      "Nested lookups currently admitted by a report's fan-out limiter.",
		}, []string{"report"}),
		UnreliableServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unreliable_lookups_served_total",
			Help:      "Responses of the unreliable pet lookup endpoint, by outcome.",
		}, []string{"outcome"}),
	}

	m.Registry.MustRegister(m.ReportRuns, m.ReportDuration, m.LookupAttempts, m.FanoutInflight, m.UnreliableServed)
	return m
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// WriteTextfile vuelca el registry a path (formato textfile collector).
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
