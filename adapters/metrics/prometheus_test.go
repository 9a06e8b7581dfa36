package metrics

import (
	"errors"
	"testing"

	"github.com/layer-3/tutti/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	r.RecordDecision(core.Authenticated(core.Identity{Subject: "u1", Email: "a@b.com"}))
	r.RecordDecision(core.Rejected(core.RejectMissingCredential))
	r.RecordDecision(core.Rejected(core.RejectMissingCredential))
	r.RecordFlow("signin", nil)
	r.RecordFlow("signin", errors.New("nope"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("authenticated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues(string(core.RejectMissingCredential))))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.flows.WithLabelValues("signin", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.flows.WithLabelValues("signin", "failure")))

	count, err := testutil.GatherAndCount(reg, "tutti_auth_guard_decisions_total", "tutti_auth_flows_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestNewPrometheusRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err)
}
