package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	faults           *prom.CounterVec
	renderDuration   *prom.HistogramVec
	halts            *prom.CounterVec
	failures         *prom.CounterVec
	pipelineDuration prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.faults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "faultline",
			Name:      "faults_total",
			Help:      "Captured faults by severity group and label",
		}, []string{"group", "label"})
		pr.renderDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "faultline",
			Name:      "render_duration_seconds",
			Help:      "Duration of fault renders by presentation mode",
			Buckets:   prom.DefBuckets,
		}, []string{"mode", "template"})
		pr.halts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "faultline",
			Name:      "halts_total",
			Help:      "Executions halted after a fatal fault",
		}, []string{"scope"})
		pr.failures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "faultline",
			Name:      "pipeline_failures_total",
			Help:      "Internal pipeline failures that degraded to best-effort behaviour",
		}, []string{"stage"})
		pr.pipelineDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "faultline",
			Name:      "pipeline_duration_seconds",
			Help:      "Time from fault capture to the end of its pipeline run",
			Buckets:   prom.DefBuckets,
		})
		reg.MustRegister(pr.faults, pr.renderDuration, pr.halts, pr.failures, pr.pipelineDuration)
	})
	return pr
}

func (p *PrometheusRecorder) IncFault(group, label string) {
	if p == nil || p.faults == nil {
		return
	}
	p.faults.WithLabelValues(group, label).Inc()
}

func (p *PrometheusRecorder) ObserveRender(mode string, d time.Duration, fallback bool) {
	if p == nil || p.renderDuration == nil {
		return
	}
	tpl := "template"
	if fallback {
		tpl = "fallback"
	}
	p.renderDuration.WithLabelValues(mode, tpl).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncHalt(scope string) {
	if p == nil || p.halts == nil {
		return
	}
	p.halts.WithLabelValues(scope).Inc()
}

func (p *PrometheusRecorder) IncPipelineFailure(stage Stage) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(string(stage)).Inc()
}

func (p *PrometheusRecorder) ObservePipelineDuration(d time.Duration) {
	if p == nil || p.pipelineDuration == nil {
		return
	}
	p.pipelineDuration.Observe(d.Seconds())
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
