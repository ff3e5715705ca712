package sensorlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the writer-side Prometheus collectors. Attach to a Store
// with AttachMetrics; serve them from the monitor's /metrics endpoint.
type Metrics struct {
	ReadingsInserted prometheus.Counter
	BatchesFlushed   prometheus.Counter
	FlushErrors      prometheus.Counter
	CheckpointErrors prometheus.Counter
}

// NewMetrics creates and registers the writer collectors. A nil registerer
// uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ReadingsInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "sensorlog_readings_inserted_total",
			Help: "Total number of readings persisted by the writer",
		}),
		BatchesFlushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sensorlog_batches_flushed_total",
			Help: "Total number of batch insert transactions committed",
		}),
		FlushErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sensorlog_flush_errors_total",
			Help: "Total number of failed batch insert transactions",
		}),
		CheckpointErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sensorlog_checkpoint_errors_total",
			Help: "Total number of failed WAL checkpoint attempts",
		}),
	}
}
