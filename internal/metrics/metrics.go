// Package metrics exposes Prometheus counters for lifecycle activity.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookshare"

type Recorder struct {
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	triggerRuns   *prometheus.CounterVec
	clearFailures prometheus.Counter
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Lifecycle transitions applied, by entity kind and target status.",
		}, []string{"kind", "to"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications written by background triggers, by type.",
		}, []string{"type"}),
		triggerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_runs_total",
			Help:      "Trigger executions, by trigger and result.",
		}, []string{"trigger", "result"}),
		clearFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clear_failures_total",
			Help:      "Items that failed to delete during clear-resolved runs.",
		}),
	}
	reg.MustRegister(r.transitions, r.notifications, r.triggerRuns, r.clearFailures)
	return r
}

func (r *Recorder) Transition(kind, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(kind, to).Inc()
}

func (r *Recorder) Notifications(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.notifications.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) TriggerRun(trigger string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.triggerRuns.WithLabelValues(trigger, result).Inc()
}

func (r *Recorder) ClearFailures(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.clearFailures.Add(float64(n))
}
