// Package metrics counts read-path operations served by the benchmark
// filesystem. Counters are registered on a private Prometheus registry so
// repeated mounts in one process never collide, and a Snapshot accessor
// exposes them to the CLI report without requiring an HTTP listener.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks filesystem operations for one mounted instance.
type Collector struct {
	registry *prometheus.Registry

	opens     prometheus.Counter
	reads     prometheus.Counter
	bytesRead prometheus.Counter
	errors    *prometheus.CounterVec

	// Mirrored in atomics so Snapshot never has to gather the registry.
	openCount  atomic.Int64
	readCount  atomic.Int64
	byteCount  atomic.Int64
	errorCount atomic.Int64
}

// Stats is a point-in-time snapshot of the collector.
type Stats struct {
	Opens     int64
	Reads     int64
	BytesRead int64
	Errors    int64
}

// NewCollector creates a collector with its own registry under the given
// namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		opens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fs",
			Name:      "opens_total",
			Help:      "Number of file opens served by the mounted filesystem.",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fs",
			Name:      "reads_total",
			Help:      "Number of read operations served by the mounted filesystem.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fs",
			Name:      "read_bytes_total",
			Help:      "Bytes returned by read operations.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fs",
			Name:      "errors_total",
			Help:      "Filesystem operation errors by operation.",
		}, []string{"operation"}),
	}

	c.registry.MustRegister(c.opens, c.reads, c.bytesRead, c.errors)
	return c
}

// RecordOpen counts one file open.
func (c *Collector) RecordOpen() {
	c.opens.Inc()
	c.openCount.Add(1)
}

// RecordRead counts one read returning n bytes.
func (c *Collector) RecordRead(n int) {
	c.reads.Inc()
	c.bytesRead.Add(float64(n))
	c.readCount.Add(1)
	c.byteCount.Add(int64(n))
}

// RecordError counts one failed operation.
func (c *Collector) RecordError(operation string) {
	c.errors.WithLabelValues(operation).Inc()
	c.errorCount.Add(1)
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Stats {
	return Stats{
		Opens:     c.openCount.Load(),
		Reads:     c.readCount.Load(),
		BytesRead: c.byteCount.Load(),
		Errors:    c.errorCount.Load(),
	}
}
