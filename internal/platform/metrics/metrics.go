package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"authserver/pkg/platform/sentinel"
)

var storeBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the client registry and the
// authorization store. A nil *Metrics records nothing.
type Metrics struct {
	StoreOperationDuration *prometheus.HistogramVec
	CorruptRecords         *prometheus.CounterVec
	ConsistencyViolations  prometheus.Counter
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StoreOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authserver_store_operation_duration_seconds",
			Help:    "Duration of relational store operations by store, operation and result",
			Buckets: storeBuckets,
		}, []string{"store", "operation", "result"}),
		CorruptRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authserver_corrupt_records_total",
			Help: "Records whose stored structured data could not be decoded",
		}, []string{"store"}),
		ConsistencyViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "authserver_authorization_consistency_violations_total",
			Help: "Lookups that matched more than one authorization",
		}),
	}
}

// ObserveStoreOperation records the duration of a store operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStoreOperation(store, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StoreOperationDuration.WithLabelValues(store, operation, Result(err)).Observe(time.Since(start).Seconds())
}

// IncrementCorruptRecord counts a record that failed to decode.
func (m *Metrics) IncrementCorruptRecord(store string) {
	if m == nil {
		return
	}
	m.CorruptRecords.WithLabelValues(store).Inc()
}

// IncrementConsistencyViolation counts an ambiguous authorization lookup.
func (m *Metrics) IncrementConsistencyViolation() {
	if m == nil {
		return
	}
	m.ConsistencyViolations.Inc()
}

// Result is the result label for err.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sentinel.ErrNotFound):
		return "not_found"
	case errors.Is(err, sentinel.ErrConstraintViolation):
		return "conflict"
	default:
		return "error"
	}
}
