package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	AnalysesTotal      *prometheus.CounterVec
	AnalysisDuration   *prometheus.HistogramVec
	AnalysisCategory   *prometheus.CounterVec
	AnomaliesPerFlight prometheus.Histogram
	OracleCalls        prometheus.Histogram
	SpecialistTags     *prometheus.HistogramVec
	SpecialistFailures *prometheus.CounterVec
	SubmitsTotal       *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackbox_analyses_total",
			Help: "Total flight analyses by final status.",
		}, []string{"status"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blackbox_analysis_duration_seconds",
			Help:    "Duration of flight analyses in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"status"}),
		AnalysisCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackbox_analysis_category_total",
			Help: "Completed analyses by winning category.",
		}, []string{"category"}),
		AnomaliesPerFlight: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blackbox_anomalies_per_flight",
			Help:    "Detector findings per analyzed flight.",
			Buckets: prometheus.LinearBuckets(0, 1, 8), // 0 .. 7 rules
		}),
		OracleCalls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blackbox_oracle_calls_per_analysis",
			Help:    "Oracle invocations per analysis.",
			Buckets: prometheus.LinearBuckets(0, 1, 6),
		}),
		SpecialistTags: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blackbox_specialist_tags",
			Help:    "Evidence tags contributed per specialist invocation.",
			Buckets: prometheus.LinearBuckets(0, 1, 12),
		}, []string{"role"}),
		SpecialistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackbox_specialist_failures_total",
			Help: "Specialist invocations that degraded to empty evidence.",
		}, []string{"role"}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackbox_submits_total",
			Help: "Total flight submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.AnalysisCategory,
		m.AnomaliesPerFlight,
		m.OracleCalls,
		m.SpecialistTags,
		m.SpecialistFailures,
		m.SubmitsTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnSpecialist: func(role string, tagCount int, failed bool) {
			m.SpecialistTags.WithLabelValues(role).Observe(float64(tagCount))
			if failed {
				m.SpecialistFailures.WithLabelValues(role).Inc()
			}
		},
		OnComplete: func(e *CompleteEvent) {
			m.AnalysesTotal.WithLabelValues(string(e.Status)).Inc()
			m.AnalysisDuration.WithLabelValues(string(e.Status)).Observe(e.Duration)
			if e.Status == StatusComplete {
				m.AnalysisCategory.WithLabelValues(e.Category).Inc()
			}
			m.AnomaliesPerFlight.Observe(float64(e.Anomalies))
			m.OracleCalls.Observe(float64(e.OracleCalls))
		},
	}
}
