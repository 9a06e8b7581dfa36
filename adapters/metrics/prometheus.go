package metrics

import (
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/ports"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	_ ports.AuthRecorder = (*PrometheusRecorder)(nil)
	_ ports.AuthRecorder = NopRecorder{}
)

// PrometheusRecorder counts guard decisions and flow outcomes
type PrometheusRecorder struct {
	decisions *prometheus.CounterVec
	flows     *prometheus.CounterVec
}

// NewPrometheusRecorder registers the auth counters on reg
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutti",
			Subsystem: "auth",
			Name:      "guard_decisions_total",
			Help:      "Auth guard decisions by result.",
		}, []string{"result"}),
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutti",
			Subsystem: "auth",
			Name:      "flows_total",
			Help:      "Auth flow invocations by flow and outcome.",
		}, []string{"flow", "outcome"}),
	}

	for _, c := range []prometheus.Collector{r.decisions, r.flows} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RecordDecision counts one guard decision
func (r *PrometheusRecorder) RecordDecision(result core.AuthResult) {
	r.decisions.WithLabelValues(result.Label()).Inc()
}

// RecordFlow counts one flow invocation
func (r *PrometheusRecorder) RecordFlow(flow string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.flows.WithLabelValues(flow, outcome).Inc()
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RecordDecision(core.AuthResult) {}
func (NopRecorder) RecordFlow(string, error)       {}
