// Package trap is the boundary between application code and the fault
// pipeline. A Trap turns uncaught panics, recoverable signals and faults left
// over at the end of a lifecycle into fault contexts, runs them through
// enrichment, recording, publication and rendering, and owns the decision to
// halt after a fatal fault.
package trap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/faultline/internal/config"
	"git.home.luguber.info/inful/faultline/internal/events"
	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/logfields"
	"git.home.luguber.info/inful/faultline/internal/metrics"
	"git.home.luguber.info/inful/faultline/internal/middleware"
	"git.home.luguber.info/inful/faultline/internal/recorder"
	"git.home.luguber.info/inful/faultline/internal/render"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

// Pipeline holds the per-lifecycle components a Trap drives.
type Pipeline struct {
	Chain    *middleware.Chain
	Recorder *recorder.Recorder
	Bus      *events.Bus
	Renderer *render.Renderer
}

// Trap routes faults through a Pipeline.
type Trap struct {
	cfg      config.RenderConfig
	p        Pipeline
	host     Host
	halter   Halter
	logger   *slog.Logger
	metrics  metrics.Recorder
	fallback io.Writer
	scope    string

	mu        sync.Mutex
	installed bool
	halted    bool
	ended     bool
}

// Option configures a Trap.
type Option func(*Trap)

// WithHost sets the host Install attaches to.
func WithHost(h Host) Option { return func(t *Trap) { t.host = h } }

// WithHalter sets the halt action. The default exits the process.
func WithHalter(h Halter) Option { return func(t *Trap) { t.halter = h } }

// WithLogger sets the logger for internal failures.
func WithLogger(l *slog.Logger) Option { return func(t *Trap) { t.logger = l } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option { return func(t *Trap) { t.metrics = m } }

// WithFallbackWriter receives the one-line message when rendering fails.
func WithFallbackWriter(w io.Writer) Option { return func(t *Trap) { t.fallback = w } }

// WithScope names the lifecycle ("process", "request") in metrics.
func WithScope(name string) Option { return func(t *Trap) { t.scope = name } }

// New returns an uninstalled Trap. Missing pipeline parts are created empty.
func New(cfg config.RenderConfig, p Pipeline, opts ...Option) *Trap {
	t := &Trap{
		cfg:      cfg,
		p:        p,
		halter:   ExitHalter{},
		logger:   slog.Default(),
		metrics:  metrics.NoopRecorder{},
		fallback: os.Stderr,
		scope:    "process",
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.p.Chain == nil {
		t.p.Chain = middleware.NewChain(nil)
	}
	if t.p.Recorder == nil {
		t.p.Recorder = recorder.New()
	}
	if t.p.Bus == nil {
		t.p.Bus = events.NewBus()
	}
	return t
}

// Install attaches the trap to its host. Installing twice has no effect.
func (t *Trap) Install() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.installed {
		return
	}
	if t.host != nil {
		t.host.Attach(t)
	}
	t.installed = true
}

// Uninstall detaches the trap from its host.
func (t *Trap) Uninstall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.installed {
		return
	}
	if t.host != nil {
		t.host.Detach(t)
	}
	t.installed = false
}

// Installed reports whether the trap is attached.
func (t *Trap) Installed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.installed
}

// Halted reports whether a fatal fault has halted this lifecycle.
func (t *Trap) Halted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.halted
}

// Recorder returns the lifecycle recorder.
func (t *Trap) Recorder() *recorder.Recorder { return t.p.Recorder }

// OnUncaughtFault handles a panic value or error that escaped application
// code. It always renders and then halts.
func (t *Trap) OnUncaughtFault(v any) {
	if t.Halted() {
		return
	}
	trace := applicationTrace(1)
	b := fault.FromPanic(v).WithTrace(trace)
	t.uncaught(b.Build())
}

// OnRecoverableSignal handles an application-raised fault. Fatal codes are
// escalated to the uncaught path when ConvertRecoverableToFatal is set;
// otherwise the fault is processed, rendered only when display is enabled,
// and control returns to the caller.
func (t *Trap) OnRecoverableSignal(code severity.Code, message string, loc fault.Location) {
	if t.Halted() {
		return
	}
	c := fault.New(code, message).AtLocation(loc).WithTrace(applicationTrace(1)).Build()
	if t.cfg.ConvertRecoverableToFatal && severity.IsFatal(code) {
		t.uncaught(c)
		return
	}
	sealed := t.process(c)
	if t.cfg.DisplayEnabled {
		t.render(sealed)
	}
}

// OnLifecycleEnd runs once after the lifecycle finished. A fatal fault the
// host saw but never routed to a trap is handled on the uncaught path.
func (t *Trap) OnLifecycleEnd() {
	t.mu.Lock()
	if t.ended || t.halted {
		t.ended = true
		t.mu.Unlock()
		return
	}
	t.ended = true
	t.mu.Unlock()

	if t.host == nil {
		return
	}
	lf, ok := t.host.LastFault()
	if !ok || lf.Routed || !severity.IsFatal(lf.Code) {
		return
	}
	c := fault.New(lf.Code, lf.Message).
		AtLocation(lf.Location).
		WithTrace(lf.Trace).
		With("lifecycle_end", true).
		Build()
	t.uncaught(c)
}

func (t *Trap) uncaught(c *fault.Context) {
	sealed := t.process(c)
	t.render(sealed)

	t.mu.Lock()
	t.halted = true
	t.mu.Unlock()

	t.metrics.IncHalt(t.scope)
	t.halter.Halt(sealed)
}

// process enriches, seals, records and publishes c. Internal failures are
// logged and never stop the fault from reaching the next stage.
func (t *Trap) process(c *fault.Context) *fault.Context {
	start := time.Now()
	defer func() { t.metrics.ObservePipelineDuration(time.Since(start)) }()

	out := c
	t.guard(metrics.StageMiddleware, c, func() {
		if enriched := t.p.Chain.Run(c); enriched != nil {
			out = enriched
		}
	})
	out.Seal()

	t.p.Recorder.Record(out)

	t.guard(metrics.StageSubscriber, out, func() {
		if err := t.p.Bus.Publish(events.TopicFaultCaptured, out); err != nil {
			t.failed(metrics.StageSubscriber, out, err)
		}
	})
	return out
}

func (t *Trap) render(c *fault.Context) {
	if t.p.Renderer == nil {
		t.writeFallback(c)
		return
	}
	ok := false
	t.guard(metrics.StageRender, c, func() {
		t.p.Renderer.Render(c, "")
		ok = true
	})
	if !ok {
		t.writeFallback(c)
	}
}

func (t *Trap) writeFallback(c *fault.Context) {
	if _, err := fmt.Fprintln(t.fallback, render.OneLine(c)); err != nil {
		t.logger.Error("Fallback fault output failed", logfields.Error(err))
	}
}

// guard runs fn and turns a panic into a logged pipeline failure. Halt
// signals pass through.
func (t *Trap) guard(stage metrics.Stage, c *fault.Context, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if IsHalt(r) {
				panic(r)
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			t.failed(stage, c, err)
		}
	}()
	fn()
}

func (t *Trap) failed(stage metrics.Stage, c *fault.Context, err error) {
	t.metrics.IncPipelineFailure(stage)
	t.logger.Error("Fault pipeline stage failed",
		slog.String("stage", string(stage)),
		logfields.Label(c.Label()),
		logfields.Message(c.Message()),
		logfields.Error(err))
}

const pkgPath = "git.home.luguber.info/inful/faultline/internal/trap."

var internalFrames = []string{
	"runtime.",
	pkgPath + "(*Trap).",
	pkgPath + "(*RuntimeHost).",
	pkgPath + "Raise",
	pkgPath + "applicationTrace",
	pkgPath + "PanicHalter.",
	"git.home.luguber.info/inful/faultline/internal/server/middleware.",
}

// applicationTrace captures the stack above the caller, dropping leading
// runtime and trap frames so the first frame points at application code.
func applicationTrace(skip int) fault.Trace {
	t := fault.CaptureTrace(skip + 1)
	for i, f := range t {
		internal := false
		for _, p := range internalFrames {
			if strings.HasPrefix(f.Function, p) {
				internal = true
				break
			}
		}
		if !internal {
			return t[i:]
		}
	}
	return t
}
