// Package metrics exports petition store activity to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ASHISH26940/petitiondesk/internal/petition"
	"github.com/ASHISH26940/petitiondesk/internal/store"
)

// Collector implements store.Observer.
type Collector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	records    prometheus.Gauge
}

var _ store.Observer = (*Collector)(nil)

// New creates the collector and registers its metrics with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "petitiondesk_store_operations_total",
				Help: "Store operations by kind and result.",
			},
			[]string{"op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "petitiondesk_store_operation_duration_seconds",
				Help:    "Time spent in store operations, including the file flush.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"op"},
		),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "petitiondesk_store_records",
			Help: "Number of petitions currently held.",
		}),
	}

	for _, m := range []prometheus.Collector{c.operations, c.duration, c.records} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveOperation records one completed store call.
func (c *Collector) ObserveOperation(op string, d time.Duration, err error) {
	c.operations.WithLabelValues(op, Result(err)).Inc()
	c.duration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveRecords sets the current collection size.
func (c *Collector) ObserveRecords(n int) {
	c.records.Set(float64(n))
}

// Result is the result label for err.
func Result(err error) string {
	var (
		verr *petition.ValidationError
		perr *store.PersistenceError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &perr):
		return "persistence"
	default:
		return "error"
	}
}
