package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records counters for cart mutations and reconciliation events.
type CartMetrics struct {
	mutations *prometheus.CounterVec
	merges    *prometheus.CounterVec
	rollbacks prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	merges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_merges_total",
		Help: "Guest cart merge attempts by outcome.",
	}, []string{"outcome"})
	rollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_optimistic_rollbacks_total",
		Help: "Optimistic quantity updates rolled back by a remote resync.",
	})
	reg.MustRegister(mutations, merges, rollbacks)
	return &CartMetrics{
		mutations: mutations,
		merges:    merges,
		rollbacks: rollbacks,
	}
}

// IncMutation increments the mutation counter for the named operation.
func (c *CartMetrics) IncMutation(op string, err error) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), outcome(err)).Inc()
}

// IncMerge increments the merge counter.
func (c *CartMetrics) IncMerge(err error) {
	if c == nil || c.merges == nil {
		return
	}
	c.merges.WithLabelValues(outcome(err)).Inc()
}

// IncRollback increments the optimistic rollback counter.
func (c *CartMetrics) IncRollback() {
	if c == nil || c.rollbacks == nil {
		return
	}
	c.rollbacks.Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
