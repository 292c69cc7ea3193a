// Package qmetrics exposes Prometheus instrumentation for the simulator's
// central dispatch point, so every primitive invocation (forward or
// inverted) is observable without the engine needing to know about
// Prometheus itself. This is an ambient observability concern, not the
// persistence/visualization functionality spec.md's Non-goals exclude.
package qmetrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Dispatched counts primitive dispatches, labeled by opcode name and
	// whether the call was inverted.
	Dispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qflow",
		Name:      "primitives_dispatched_total",
		Help:      "Number of primitive invocations handled by the simulator's dispatch table.",
	}, []string{"opcode", "inverted"})

	// Branches tracks the live branch count after the most recent
	// merge/prune pass (C8), as a gauge rather than a counter since it can
	// go down as well as up.
	Branches = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "qflow",
		Name:      "branches",
		Help:      "Number of live branches in the simulator's branch store after the last prune.",
	})

	// Pruned counts branches dropped by the threshold-pruning routine.
	Pruned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "qflow",
		Name:      "branches_pruned_total",
		Help:      "Number of branches dropped for |amp| below the configured threshold.",
	})
)

// Registry is a dedicated registry (rather than the global default) so
// embedding this library in a larger program never panics on duplicate
// registration.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(Dispatched, Branches, Pruned)
}

// Observe records one primitive dispatch.
func Observe(opcode string, inverted bool) {
	label := "false"
	if inverted {
		label = "true"
	}
	Dispatched.WithLabelValues(opcode, label).Inc()
}

// SetBranchCount updates the live branch gauge.
func SetBranchCount(n int) {
	Branches.Set(float64(n))
}

// AddPruned increments the pruned-branch counter by n.
func AddPruned(n int) {
	if n <= 0 {
		return
	}
	Pruned.Add(float64(n))
}
