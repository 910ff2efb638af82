package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported on /metrics.
type Metrics struct {
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	phrases     *prometheus.GaugeVec
	classified  *prometheus.GaugeVec
	suggestions *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adinsights",
			Name:      "analysis_runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adinsights",
			Name:      "analysis_run_duration_seconds",
			Help:      "Wall time of one analysis run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		phrases: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "adinsights",
			Name:      "phrases",
			Help:      "Distinct phrases in the last run per n-gram order.",
		}, []string{"order"}),
		classified: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "adinsights",
			Name:      "classified_items",
			Help:      "Items in each classification category in the last run.",
		}, []string{"category"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adinsights",
			Name:      "suggestion_requests_total",
			Help:      "Ad copy suggestion requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.phrases, m.classified, m.suggestions)
	return m
}

// RunStats is what one analysis run reports.
type RunStats struct {
	PhrasesByOrder     map[int]int
	UnderperformingAds int
	GoldNuggets        int
	Mismatches         int
	Duration           time.Duration
}

// ObserveRun records a successful run.
func (m *Metrics) ObserveRun(s RunStats) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.runDuration.Observe(s.Duration.Seconds())
	m.phrases.Reset()
	for n, c := range s.PhrasesByOrder {
		m.phrases.WithLabelValues(strconv.Itoa(n)).Set(float64(c))
	}
	m.classified.WithLabelValues("underperforming_ads").Set(float64(s.UnderperformingAds))
	m.classified.WithLabelValues("gold_nuggets").Set(float64(s.GoldNuggets))
	m.classified.WithLabelValues("mismatches").Set(float64(s.Mismatches))
}

// ObserveFailure records a rejected run.
func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("error").Inc()
}

// ObserveSuggestion records one suggestion request: ok, cached, skipped or error.
func (m *Metrics) ObserveSuggestion(outcome string) {
	if m == nil {
		return
	}
	m.suggestions.WithLabelValues(outcome).Inc()
}
