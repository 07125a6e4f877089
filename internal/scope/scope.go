// Package scope assembles the fault pipeline for one request or process.
// Shared collaborators are safe for concurrent use; everything a Scope owns
// belongs to a single lifecycle.
package scope

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/faultline/internal/config"
	"git.home.luguber.info/inful/faultline/internal/debugpanel"
	"git.home.luguber.info/inful/faultline/internal/events"
	"git.home.luguber.info/inful/faultline/internal/logfields"
	"git.home.luguber.info/inful/faultline/internal/logsink"
	"git.home.luguber.info/inful/faultline/internal/metrics"
	"git.home.luguber.info/inful/faultline/internal/middleware"
	"git.home.luguber.info/inful/faultline/internal/recorder"
	"git.home.luguber.info/inful/faultline/internal/render"
	"git.home.luguber.info/inful/faultline/internal/trap"
)

// Shared holds collaborators reused across lifecycles.
type Shared struct {
	Config    config.RenderConfig
	Sink      logsink.Sink
	Metrics   metrics.Recorder
	Templates render.TemplateSource
	Logger    *slog.Logger
	// Steps run after the request id and environment steps and before the
	// fingerprint.
	Steps []middleware.Step
	// Subscribers receive faults after the log sink, panel and metrics.
	Subscribers []events.Handler
}

// Options describe one lifecycle.
type Options struct {
	Name   string
	Out    io.Writer
	Probe  render.Probe
	Halter trap.Halter

	// RequestID is shared by every fault of the lifecycle. Empty means a
	// random UUID.
	RequestID string
}

// Scope is one assembled pipeline.
type Scope struct {
	Name      string
	RequestID string
	Started   time.Time
	Host      *trap.RuntimeHost
	Recorder  *recorder.Recorder
	Bus       *events.Bus
	Panel     *debugpanel.Panel
	Chain     *middleware.Chain
	Buffers   *render.BufferStack
	Renderer  *render.Renderer
	Trap      *trap.Trap

	cfg config.RenderConfig
}

func (s *Shared) defaults() {
	if s.Metrics == nil {
		s.Metrics = metrics.NoopRecorder{}
	}
	if s.Templates == nil {
		s.Templates = render.FileSource{}
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Sink == nil {
		s.Sink = logsink.NewSlogSink(s.Logger)
	}
}

// New builds and installs a pipeline writing to opts.Out.
func (s *Shared) New(opts Options) (*Scope, error) {
	s.defaults()
	if opts.Name == "" {
		opts.Name = "process"
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Probe == nil {
		opts.Probe = render.Headless
	}
	if opts.Halter == nil {
		opts.Halter = trap.ExitHalter{}
	}
	if opts.RequestID == "" {
		opts.RequestID = uuid.NewString()
	}

	sc := &Scope{
		Name:      opts.Name,
		RequestID: opts.RequestID,
		Started:   time.Now(),
		Host:      trap.NewRuntimeHost(),
		Recorder:  recorder.New(),
		Bus:       events.NewBus(),
		Panel:     debugpanel.New(),
		Buffers:   render.NewBufferStack(opts.Out),
		cfg:       s.Config,
	}

	steps := []middleware.Step{
		middleware.RequestID(func() string { return sc.RequestID }),
		middleware.Tag(middleware.KeyEnvironment, string(s.Config.Environment)),
	}
	steps = append(steps, s.Steps...)
	steps = append(steps, middleware.Fingerprint())
	sc.Chain = middleware.NewChain(steps, middleware.WithErrorHandler(func(step string, err error) {
		s.Metrics.IncPipelineFailure(metrics.StageMiddleware)
		s.Logger.Warn("Fault middleware step skipped", logfields.Step(step), logfields.Error(err))
	}))

	handlers := []events.Handler{
		logsink.NewSubscriber(s.Sink, s.Config.LogEnabled, s.Config.LogThreshold).Handler(),
		metrics.CountFaults(s.Metrics),
	}
	handlers = append(handlers, s.Subscribers...)
	if _, err := sc.Panel.Attach(sc.Bus); err != nil {
		return nil, err
	}
	for _, h := range handlers {
		if _, err := sc.Bus.Subscribe(events.TopicFaultCaptured, h); err != nil {
			return nil, err
		}
	}
	sc.Panel.AddMetric("faults_recorded", func() any { return sc.Recorder.Len() })
	sc.Panel.AddMetric("elapsed", func() any { return time.Since(sc.Started).Round(time.Microsecond) })
	sc.Panel.AddMetric("goroutines", func() any { return runtime.NumGoroutine() })
	sc.Panel.AddMetric("heap_alloc", func() any {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return ms.HeapAlloc
	})

	sc.Renderer = render.New(s.Config, sc.Buffers,
		render.WithSource(s.Templates),
		render.WithProbe(opts.Probe),
		render.WithLogger(s.Logger),
		render.WithObserver(s.Metrics),
	)
	sc.Trap = trap.New(s.Config, trap.Pipeline{
		Chain:    sc.Chain,
		Recorder: sc.Recorder,
		Bus:      sc.Bus,
		Renderer: sc.Renderer,
	},
		trap.WithHost(sc.Host),
		trap.WithHalter(opts.Halter),
		trap.WithLogger(s.Logger),
		trap.WithMetrics(s.Metrics),
		trap.WithFallbackWriter(sc.Buffers),
		trap.WithScope(opts.Name),
	)
	sc.Trap.Install()
	return sc, nil
}

// Context returns ctx carrying the scope's host so trap.Raise reaches it.
func (sc *Scope) Context(ctx context.Context) context.Context {
	return trap.ContextWithHost(ctx, sc.Host)
}

// Run executes fn under the scope's host.
func (sc *Scope) Run(fn func()) error {
	return sc.Host.Run(fn)
}

// Close runs the lifecycle-end check and detaches the trap. It returns
// trap.ErrHalted when the check halted.
func (sc *Scope) Close() error {
	defer sc.Trap.Uninstall()
	return sc.Host.Run(sc.Trap.OnLifecycleEnd)
}

// Config returns the render configuration the scope was built with.
func (sc *Scope) Config() config.RenderConfig { return sc.cfg }

// ShowPanel reports whether the debug panel belongs in the output.
func (sc *Scope) ShowPanel() bool {
	return sc.cfg.Development() && sc.cfg.DebugPanel
}
