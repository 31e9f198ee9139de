package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics records drone hand-off pipeline activity.
type DispatchMetrics struct {
	transitionsFired *prometheus.CounterVec
	transitionsStale *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	repairedOrders   prometheus.Counter
}

// NewDispatchMetrics registers dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	transitionsFired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_transitions_fired",
		Help: "Delayed transitions applied by the scheduler.",
	}, []string{"transition"})
	transitionsStale := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_transitions_stale",
		Help: "Delayed transitions skipped because the order had already moved on.",
	}, []string{"transition"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_delayed_queue_depth",
		Help: "Entries currently waiting in the delayed transition queue.",
	})
	repairedOrders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_repaired_orders",
		Help: "Orders advanced by the handover repair sweep.",
	})
	reg.MustRegister(transitionsFired, transitionsStale, queueDepth, repairedOrders)
	return &DispatchMetrics{
		transitionsFired: transitionsFired,
		transitionsStale: transitionsStale,
		queueDepth:       queueDepth,
		repairedOrders:   repairedOrders,
	}
}

// IncTransitionFired increments the fired counter for the named transition.
func (d *DispatchMetrics) IncTransitionFired(transition string) {
	if d == nil || d.transitionsFired == nil {
		return
	}
	d.transitionsFired.WithLabelValues(normalizeLabel(transition)).Inc()
}

// IncTransitionStale increments the stale counter for the named transition.
func (d *DispatchMetrics) IncTransitionStale(transition string) {
	if d == nil || d.transitionsStale == nil {
		return
	}
	d.transitionsStale.WithLabelValues(normalizeLabel(transition)).Inc()
}

// SetQueueDepth records the delayed queue size observed during a poll.
func (d *DispatchMetrics) SetQueueDepth(depth int) {
	if d == nil || d.queueDepth == nil {
		return
	}
	d.queueDepth.Set(float64(depth))
}

// IncRepairedOrders increments the repair sweep counter.
func (d *DispatchMetrics) IncRepairedOrders() {
	if d == nil || d.repairedOrders == nil {
		return
	}
	d.repairedOrders.Inc()
}
