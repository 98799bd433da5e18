package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UsageChecks         *prometheus.CounterVec
	UsageDenials        prometheus.Counter
	FallbackActivations prometheus.Counter
	Degraded            prometheus.Gauge
}

// New registers the limiter metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the limiter metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsageChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paythru_ocr_usage_checks_total",
			Help: "Total number of OCR usage checks by outcome",
		}, []string{"outcome"}),
		UsageDenials: f.NewCounter(prometheus.CounterOpts{
			Name: "paythru_ocr_usage_denials_total",
			Help: "Total number of OCR analyses refused because the caller's allowance was spent",
		}),
		FallbackActivations: f.NewCounter(prometheus.CounterOpts{
			Name: "paythru_ocr_usage_fallback_activations_total",
			Help: "Total number of times the usage limiter switched to its in-memory fallback",
		}),
		Degraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "paythru_ocr_usage_degraded",
			Help: "1 while the usage limiter is answering from its in-memory fallback",
		}),
	}
}

func (m *Metrics) ObserveCheck(outcome string) {
	m.UsageChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementDenials() {
	m.UsageDenials.Inc()
}

func (m *Metrics) IncrementFallbackActivations() {
	m.FallbackActivations.Inc()
	m.Degraded.Set(1)
}

func (m *Metrics) ClearDegraded() {
	m.Degraded.Set(0)
}
