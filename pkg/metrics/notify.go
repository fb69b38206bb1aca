package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotifyMetrics counts best-effort notification dispatch outcomes. Sends
// never fail a workflow transition, so these counters are the only place
// delivery problems become visible.
type NotifyMetrics struct {
	success *prometheus.CounterVec
	failure *prometheus.CounterVec
}

// NewNotifyMetrics registers notification dispatch metrics on the provided registerer.
func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	if reg == nil {
		return &NotifyMetrics{}
	}
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_dispatch_success",
		Help: "Notification dispatches that completed.",
	}, []string{"event"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_dispatch_failure",
		Help: "Notification dispatches that failed or timed out.",
	}, []string{"event"})
	reg.MustRegister(success, failure)
	return &NotifyMetrics{success: success, failure: failure}
}

// IncSuccess increments the success counter for the named event.
func (n *NotifyMetrics) IncSuccess(event string) {
	if n == nil || n.success == nil {
		return
	}
	n.success.WithLabelValues(jobLabel(event)).Inc()
}

// IncFailure increments the failure counter for the named event.
func (n *NotifyMetrics) IncFailure(event string) {
	if n == nil || n.failure == nil {
		return
	}
	n.failure.WithLabelValues(jobLabel(event)).Inc()
}
