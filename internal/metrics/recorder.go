package metrics

import (
	"time"

	"git.home.luguber.info/inful/faultline/internal/callable"
	"git.home.luguber.info/inful/faultline/internal/fault"
)

// Stage names a pipeline stage that can fail without aborting the pipeline.
type Stage string

const (
	StageMiddleware Stage = "middleware"
	StageSubscriber Stage = "subscriber"
	StageRender     Stage = "render"
	StageTrap       Stage = "trap"
)

// Recorder defines fault pipeline observability hooks. Implementations must be
// safe for concurrent use.
type Recorder interface {
	IncFault(group, label string)
	ObserveRender(mode string, d time.Duration, fallback bool)
	IncHalt(scope string)
	IncPipelineFailure(stage Stage)
	ObservePipelineDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncFault(string, string)                   {}
func (NoopRecorder) ObserveRender(string, time.Duration, bool) {}
func (NoopRecorder) IncHalt(string)                            {}
func (NoopRecorder) IncPipelineFailure(Stage)                  {}
func (NoopRecorder) ObservePipelineDuration(time.Duration)     {}

// CountFaults returns a fault.captured handler counting faults on rec.
func CountFaults(rec Recorder) callable.Callable[*fault.Context, error] {
	return callable.Static("metrics", "CountFaults", func(c *fault.Context) error {
		rec.IncFault(c.Group().Primary(), c.Label())
		return nil
	})
}
