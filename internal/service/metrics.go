package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"docflow/internal/model"
	"docflow/internal/workflow"
)

// Metrics counts workflow activity. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	conflicts   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_transitions_total",
				Help: "Document status transitions applied, by transition and target status.",
			},
			[]string{"transition", "to"},
		),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "document_transition_conflicts_total",
			Help: "Status updates lost to a concurrent change.",
		}),
	}
	for _, c := range []prometheus.Collector{m.transitions, m.conflicts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) transition(t workflow.Transition, to model.Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(t), string(to)).Inc()
}

func (m *Metrics) conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}
