package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkdoctor/internal/analysis"
	"linkdoctor/internal/models"
)

// Metrics holds the Prometheus collectors for probes and scans.
type Metrics struct {
	registry      *prometheus.Registry
	ProbesTotal   *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec
	ScansTotal    *prometheus.CounterVec
	Diagnoses     *prometheus.CounterVec
}

// New registers the collectors on a private registry.
func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkdoctor",
			Name:      "probes_total",
			Help:      "Probes issued by role and result.",
		}, []string{"role", "result"}),
		ProbeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "linkdoctor",
			Name:      "probe_duration_seconds",
			Help:      "Probe duration from issue to resolution or abort.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.45, 0.9, 1.8, 2.5},
		}, []string{"role"}),
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkdoctor",
			Name:      "scans_total",
			Help:      "Completed scans by phase label.",
		}, []string{"label"}),
		Diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkdoctor",
			Name:      "diagnoses_total",
			Help:      "Diagnoses produced by rule and severity.",
		}, []string{"rule", "severity"}),
	}
	r.MustRegister(m.ProbesTotal, m.ProbeDuration, m.ScansTotal, m.Diagnoses)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveProbe implements probe.Recorder.
func (m *Metrics) ObserveProbe(o models.ProbeOutcome) {
	result := "completed"
	if !o.Completed {
		result = string(o.ErrorKind)
		if result == "" {
			result = "failed"
		}
	}
	m.ProbesTotal.WithLabelValues(string(o.Role), result).Inc()
	m.ProbeDuration.WithLabelValues(string(o.Role)).Observe(float64(o.ElapsedMs) / 1000)
}

// ObserveScan implements session.ScanObserver.
func (m *Metrics) ObserveScan(r models.ScanResult, d analysis.Diagnosis) {
	m.ScansTotal.WithLabelValues(string(r.Label)).Inc()
	m.Diagnoses.WithLabelValues(d.Rule, string(d.Severity)).Inc()
}
