package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridcalc_operations_total",
		Help: "Sheet operations by operation and outcome code",
	}, []string{"op", "code"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridcalc_operation_duration_seconds",
		Help:    "Duration of sheet operations, including sheet load and persistence",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.25},
	}, []string{"op"})
)

func observe(op string, start time.Time, err error) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues(op, codeLabel(err)).Inc()
}
