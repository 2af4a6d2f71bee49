// Package metrics exposes the Prometheus gauges and counters the hub and
// its workers update: queue depths, ref-queue backlog, index size, and
// request/response totals.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// IndexLen reports the current number of keys in a hub's shared index.
	IndexLen = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "corehive",
		Subsystem: "hub",
		Name:      "index_len",
		Help:      "Number of keys currently present in the hub's shared index.",
	}, []string{"hub"})

	// RefQueuePending reports the number of not-yet-drained entries on a
	// ref queue (main-side or worker-side).
	RefQueuePending = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "corehive",
		Subsystem: "refqueue",
		Name:      "pending",
		Help:      "Number of scheduled but undrained retain/release entries.",
	}, []string{"owner", "side"})

	// QueueDepth reports the number of undelivered messages on one channel
	// of one mqueue.Queue.
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "corehive",
		Subsystem: "mqueue",
		Name:      "depth",
		Help:      "Number of undelivered messages on a queue channel.",
	}, []string{"queue", "channel"})

	// RequestsTotal counts hub<->worker requests posted, by direction.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corehive",
		Subsystem: "hub",
		Name:      "requests_total",
		Help:      "Total number of requests posted between hub and workers.",
	}, []string{"direction"})

	// ResponsesTotal counts replies posted back through forHub.
	ResponsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corehive",
		Subsystem: "hub",
		Name:      "responses_total",
		Help:      "Total number of responses posted back to the hub.",
	}, []string{"worker"})
)

// MustRegister registers every collector in this package with reg. Callers
// own the registry (no package-level default registry is touched), keeping
// with the project's no-hidden-singletons design note.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(IndexLen, RefQueuePending, QueueDepth, RequestsTotal, ResponsesTotal)
}
