package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the OCR engine.
type Metrics struct {
	Extractions         *prometheus.CounterVec
	StrategySelections  *prometheus.CounterVec
	ProviderDuration    *prometheus.HistogramVec
	PollAttempts        prometheus.Histogram
	CleanupFailures     prometheus.Counter
	ExtractedFieldCount *prometheus.HistogramVec
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Extractions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paythru_ocr_extractions_total",
			Help: "Total number of document extractions by record kind and outcome",
		}, []string{"kind", "outcome"}),
		StrategySelections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paythru_ocr_strategy_selections_total",
			Help: "Total number of analyses by provider strategy",
		}, []string{"strategy"}),
		ProviderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paythru_ocr_provider_duration_seconds",
			Help:    "Wall time of a provider analysis including upload and polling",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		}, []string{"strategy", "outcome"}),
		PollAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "paythru_ocr_poll_attempts",
			Help:    "Number of status polls per asynchronous analysis",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		CleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "paythru_ocr_cleanup_failures_total",
			Help: "Total number of temporary objects that could not be deleted",
		}),
		ExtractedFieldCount: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paythru_ocr_extracted_pairs",
			Help:    "Number of key-value pairs recovered per document",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObserveExtraction(kind, outcome string) {
	m.Extractions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncrementStrategy(strategy string) {
	m.StrategySelections.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ObserveProviderDuration(strategy, outcome string, d time.Duration) {
	m.ProviderDuration.WithLabelValues(strategy, outcome).Observe(d.Seconds())
}

func (m *Metrics) ObservePollAttempts(n int) {
	m.PollAttempts.Observe(float64(n))
}

func (m *Metrics) IncrementCleanupFailures() {
	m.CleanupFailures.Inc()
}

func (m *Metrics) ObservePairs(kind string, n int) {
	m.ExtractedFieldCount.WithLabelValues(kind).Observe(float64(n))
}
