package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels reports generated without pipeline failures.
	OutcomeSuccess = "success"
	// OutcomeError labels report runs that failed before producing tables.
	OutcomeError = "error"
)

var (
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "downtime_report",
			Name:      "reports_total",
			Help:      "Total number of reports generated, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	reportDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "downtime_report",
			Name:      "report_seconds",
			Help:      "Report generation latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	rowsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "downtime_report",
			Name:      "rows_dropped_total",
			Help:      "Raw log rows dropped during normalisation.",
		},
	)
)

// Register attaches the report collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		reportsTotal,
		reportDurationSeconds,
		rowsDroppedTotal,
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

// ObserveReport records a report run's duration and outcome label.
func ObserveReport(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	reportsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	reportDurationSeconds.Observe(duration.Seconds())
}

// AddDroppedRows counts rows discarded by the normalizer.
func AddDroppedRows(n int) {
	if n <= 0 {
		return
	}
	rowsDroppedTotal.Add(float64(n))
}
