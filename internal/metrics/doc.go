// Package metrics records fault pipeline metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs nil checks. PrometheusRecorder is the real
// implementation; HTTPHandler serves its registry.
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	bus.Subscribe(events.TopicFaultCaptured, metrics.CountFaults(rec))
package metrics
