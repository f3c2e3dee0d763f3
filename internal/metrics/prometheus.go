package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gateway-fm/cubench/pkg/types"
)

// PrometheusMetrics holds all Prometheus metrics for the harness.
type PrometheusMetrics struct {
	SubmissionsTotal *prometheus.CounterVec
	ComputeUnits     *prometheus.HistogramVec
	MissingCostTotal *prometheus.CounterVec
	SubmitLatency    prometheus.Histogram
	RunStatus        *prometheus.GaugeVec
}

// NewPrometheusMetrics creates and registers all metrics.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &PrometheusMetrics{
		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cubench_submissions_total",
				Help: "Submissions by status and instruction selector",
			},
			[]string{"status", "selector"},
		),

		ComputeUnits: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cubench_compute_units",
				Help:    "Compute units consumed per successful submission",
				Buckets: []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000, 200000},
			},
			[]string{"selector"},
		),

		MissingCostTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cubench_missing_cost_total",
				Help: "Submissions where no compute-unit signal could be located",
			},
			[]string{"selector"},
		),

		SubmitLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cubench_submit_latency_seconds",
				Help:    "Wall-clock latency of one submit-and-extract cycle",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),

		RunStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cubench_run_status",
				Help: "Current run status (1 for the active status, 0 otherwise)",
			},
			[]string{"status"},
		),
	}
}

// RecordOutcome records one normalized submission outcome.
func (m *PrometheusMetrics) RecordOutcome(o types.ExecutionOutcome) {
	selector := strconv.Itoa(int(o.Selector))

	status := "failed"
	if o.Success {
		status = "success"
	}
	m.SubmissionsTotal.WithLabelValues(status, selector).Inc()
	m.SubmitLatency.Observe(o.Duration.Seconds())

	if o.Measured() {
		m.ComputeUnits.WithLabelValues(selector).Observe(float64(*o.ComputeUnits))
	} else if o.Success {
		m.MissingCostTotal.WithLabelValues(selector).Inc()
	}
}

// SetRunStatus updates the run status gauges.
func (m *PrometheusMetrics) SetRunStatus(status types.RunStatus) {
	for _, s := range []types.RunStatus{
		types.StatusIdle, types.StatusBooting, types.StatusRunning,
		types.StatusCompleted, types.StatusError,
	} {
		v := 0.0
		if s == status {
			v = 1.0
		}
		m.RunStatus.WithLabelValues(string(s)).Set(v)
	}
}
