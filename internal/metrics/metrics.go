// Package metrics holds the prometheus collectors shared by the store,
// registry and planning packages. Collectors register on the default
// registry; exposing them is left to whoever embeds the module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// StoreOperations counts document store calls.
	// Labels: backend (badger, gorm), operation (get, put, delete, foreach, update), result.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchline_store_operations_total",
		Help: "Document store operations by backend, operation and result",
	}, []string{"backend", "operation", "result"})

	// CascadeRewrites counts dependent documents rewritten by a cascade.
	// Labels: relationship (supplier_item, item_formula, user_sprint).
	CascadeRewrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchline_cascade_rewrites_total",
		Help: "Embedded copies rewritten by cascades",
	}, []string{"relationship"})

	CascadeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batchline_cascade_duration_seconds",
		Help:    "Duration of a full cascade scan",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	}, []string{"relationship"})

	Suggestions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchline_suggestions_total",
		Help: "Next-sprint target suggestions computed",
	})

	// NumericAnomalies counts non-finite suggestions replaced by zero.
	NumericAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchline_numeric_anomalies_total",
		Help: "Non-finite intermediate results clamped to zero",
	})
)

// ObserveStore records one store call.
func ObserveStore(backend, operation string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	StoreOperations.WithLabelValues(backend, operation, result).Inc()
}

// ObserveCascade records a finished cascade.
func ObserveCascade(relationship string, rewritten int, started time.Time) {
	CascadeRewrites.WithLabelValues(relationship).Add(float64(rewritten))
	CascadeDuration.WithLabelValues(relationship).Observe(time.Since(started).Seconds())
}
