package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics reported while executing plans
type Collector struct {
	rows          *prometheus.CounterVec
	partitions    *prometheus.CounterVec
	stageDuration prometheus.Histogram
}

// NewCollector creates a new set of metrics. Metrics will be registered to reg, if it is non-nil.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sifplan",
			Name:      "operator_rows_total",
			Help:      "Total number of rows emitted by physical operators",
		}, []string{"kind"}),
		partitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sifplan",
			Name:      "operator_partitions_total",
			Help:      "Total number of partitions emitted by physical operators",
		}, []string{"kind"}),
		stageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sifplan",
			Name:      "stage_duration_seconds",
			Help:      "Time taken to execute a plan stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(c.rows, c.partitions, c.stageDuration)
	}
	return c
}

// ObservePartition records a Partition emitted by an operator of the given kind
func (c *Collector) ObservePartition(kind string, numRows int) {
	if c == nil {
		return
	}
	c.rows.WithLabelValues(kind).Add(float64(numRows))
	c.partitions.WithLabelValues(kind).Inc()
}

// ObserveStage records the runtime of a Stage
func (c *Collector) ObserveStage(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.Observe(elapsed.Seconds())
}
