// Package recordermetrics exports recorder events as prometheus metrics.
package recordermetrics

import (
	"context"
	"time"

	"github.com/goforj/recorder"
	"github.com/prometheus/client_golang/prometheus"
)

// Observer counts recorder operations and their durations.
//
// Metrics:
//   - recorder_operations_total: operations by op, connection and result (hit, miss, error)
//   - recorder_operation_duration_seconds: operation latency by op and result
type Observer struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ recorder.Observer = (*Observer)(nil)

// NewObserver creates the recorder metrics and registers them with registerer.
func NewObserver(registerer prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recorder",
				Name:      "operations_total",
				Help:      "Recorder operations by op, connection and result",
			},
			[]string{"op", "connection", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "recorder",
				Name:      "operation_duration_seconds",
				Help:      "Recorder operation latency in seconds",
				// Replayed calls are sub-millisecond; live calls and tape I/O are slower.
				Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
			},
			[]string{"op", "result"},
		),
	}
	for _, c := range []prometheus.Collector{o.operations, o.duration} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnRecordOp implements recorder.Observer.
func (o *Observer) OnRecordOp(_ context.Context, op recorder.Op, conn string, _ string, hit bool, err error, dur time.Duration) {
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case hit:
		result = "hit"
	}
	o.operations.WithLabelValues(string(op), conn, result).Inc()
	o.duration.WithLabelValues(string(op), result).Observe(dur.Seconds())
}
