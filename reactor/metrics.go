package reactor

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the Reactor's Prometheus collectors. Passing a nil
// Registry to NewMetrics still returns usable (unregistered)
// collectors, so a Reactor can always be constructed without a caller
// opting into metrics.
type Metrics struct {
	connectionsActive prometheus.Gauge
	framesDispatched  prometheus.Counter
	workQueueDepth    prometheus.Gauge
	shutdownDuration  prometheus.Histogram
}

// NewMetrics builds the Reactor's collector set and, if reg is
// non-nil, registers them against it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nbrpc",
			Name:      "connections_active",
			Help:      "Number of connections currently registered with the reactor.",
		}),
		framesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nbrpc",
			Name:      "frames_dispatched_total",
			Help:      "Total number of complete frames handed to the worker pool.",
		}),
		workQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nbrpc",
			Name:      "work_queue_depth",
			Help:      "Number of frames currently buffered in the work queue.",
		}),
		shutdownDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nbrpc",
			Name:      "shutdown_duration_seconds",
			Help:      "Time spent draining the reactor and worker pool during shutdown.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connectionsActive, m.framesDispatched, m.workQueueDepth, m.shutdownDuration)
	}
	return m
}
