package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels stages that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels stages that returned an error.
	OutcomeError = "error"
)

var (
	stageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yearlens",
			Name:      "stage_runs_total",
			Help:      "Pipeline stage executions, partitioned by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yearlens",
			Name:      "stage_seconds",
			Help:      "Pipeline stage latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"stage"},
	)

	productsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "yearlens",
		Name:      "products",
		Help:      "Distinct products in the last ingested table.",
	})

	recordsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "yearlens",
		Name:      "monthly_records",
		Help:      "Monthly records produced by the last normalization.",
	})

	skippedCellsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yearlens",
			Name:      "skipped_cells_total",
			Help:      "Cells that could not be used, partitioned by reason.",
		},
		[]string{"reason"},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yearlens",
			Name:      "anomalies_total",
			Help:      "Flagged anomalies, partitioned by direction.",
		},
		[]string{"direction"},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yearlens",
			Name:      "alerts_total",
			Help:      "Threshold alerts, partitioned by triggering metric.",
		},
		[]string{"metric"},
	)
)

// Register attaches yearlens collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		stageRunsTotal,
		stageDurationSeconds,
		productsGauge,
		recordsGauge,
		skippedCellsTotal,
		anomaliesTotal,
		alertsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveStage records a stage duration and outcome. Any outcome other than
// OutcomeError counts as success.
func ObserveStage(stage string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	stageRunsTotal.WithLabelValues(stage, label).Inc()
	if duration < 0 {
		duration = 0
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// SetIngest publishes the size of the last normalized table and its unusable cells.
func SetIngest(products, records, missing, nonNumeric int) {
	productsGauge.Set(float64(products))
	recordsGauge.Set(float64(records))
	if missing > 0 {
		skippedCellsTotal.WithLabelValues("missing").Add(float64(missing))
	}
	if nonNumeric > 0 {
		skippedCellsTotal.WithLabelValues("non_numeric").Add(float64(nonNumeric))
	}
}

// AddAnomalies counts flagged anomalies by direction.
func AddAnomalies(up, down int) {
	anomaliesTotal.WithLabelValues("up").Add(float64(up))
	anomaliesTotal.WithLabelValues("down").Add(float64(down))
}

// AddAlert counts one alert per triggering metric.
func AddAlert(metrics ...string) {
	for _, m := range metrics {
		alertsTotal.WithLabelValues(m).Inc()
	}
}
