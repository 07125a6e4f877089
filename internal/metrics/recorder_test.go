package metrics

import (
	"slices"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

// counterValue returns the counter named name whose label values equal values
// in label-name order.
func counterValue(t *testing.T, reg *prom.Registry, name string, values ...string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			got := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				got = append(got, lp.GetValue())
			}
			if slices.Equal(got, values) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("counter %s%v not found", name, values)
	return 0
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncFault("fatal", "ERROR")
	pr.ObserveRender("full", 5*time.Millisecond, false)
	pr.IncHalt("request")
	pr.IncPipelineFailure(StageMiddleware)
	pr.ObservePipelineDuration(time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 5)
	assert.InDelta(t, 1, counterValue(t, reg, "faultline_faults_total", "fatal", "ERROR"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "faultline_pipeline_failures_total", "middleware"), 0)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncFault("fatal", "ERROR")
		pr.IncHalt("process")
		pr.ObserveRender("full", time.Second, true)
	})
}

func TestCountFaults(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	h := CountFaults(pr)
	assert.Equal(t, "metrics.CountFaults", h.Describe())

	c := fault.New(severity.CodeUserWarning, "w").Build()
	c.Seal()
	require.NoError(t, h.Invoke(c))
	require.NoError(t, h.Invoke(c))

	assert.InDelta(t, 2, counterValue(t, reg, "faultline_faults_total", "warning", "USER_WARNING"), 0)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.IncFault("", "")
		r.IncPipelineFailure(StageRender)
	})
}
