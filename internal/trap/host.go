package trap

import (
	"context"
	"log/slog"
	"sync"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/logfields"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

// LastFault is the most recent fault seen by a host.
type LastFault struct {
	Seq      uint64
	Code     severity.Code
	Message  string
	Location fault.Location
	Trace    fault.Trace
	// Routed is set when the fault was delivered to an attached trap.
	Routed bool
}

// Host is the runtime a Trap attaches to.
type Host interface {
	Attach(t *Trap)
	Detach(t *Trap)
	LastFault() (LastFault, bool)
}

// ErrUnhandledPanic is returned by RuntimeHost.Run when fn panicked and no
// trap was attached.
var ErrUnhandledPanic = ferrors.RuntimeError("unhandled panic").Build()

// RuntimeHost runs application code and routes its faults to the attached
// trap. One host serves one request or process.
type RuntimeHost struct {
	mu   sync.Mutex
	trap *Trap
	seq  uint64
	last *LastFault
}

// NewRuntimeHost returns a host with no trap attached.
func NewRuntimeHost() *RuntimeHost {
	return &RuntimeHost{}
}

func (h *RuntimeHost) Attach(t *Trap) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trap = t
}

func (h *RuntimeHost) Detach(t *Trap) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.trap == t {
		h.trap = nil
	}
}

// Attached returns the trap currently attached, if any.
func (h *RuntimeHost) Attached() *Trap {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.trap
}

func (h *RuntimeHost) LastFault() (LastFault, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return LastFault{}, false
	}
	return *h.last, true
}

func (h *RuntimeHost) note(lf LastFault) *Trap {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	lf.Seq = h.seq
	lf.Routed = h.trap != nil
	h.last = &lf
	return h.trap
}

// Run calls fn. A panic is routed to the attached trap as an uncaught fault
// and Run returns ErrHalted. Without a trap the panic is only remembered as
// the last fault and ErrUnhandledPanic is returned.
func (h *RuntimeHost) Run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = h.recovered(r)
		}
	}()
	fn()
	return nil
}

func (h *RuntimeHost) recovered(r any) (err error) {
	if IsHalt(r) {
		return ErrHalted
	}
	c := fault.FromPanic(r).Build()
	trace := applicationTrace(1)
	t := h.note(LastFault{Code: c.Code(), Message: c.Message(), Location: locationOf(trace), Trace: trace})
	if t == nil {
		return ErrUnhandledPanic.WithContext("panic", c.Message())
	}

	defer func() {
		if r2 := recover(); r2 != nil {
			if !IsHalt(r2) {
				panic(r2)
			}
			err = ErrHalted
		}
	}()
	t.OnUncaughtFault(r)
	return ErrHalted
}

// Raise signals a recoverable fault at the caller's location.
func (h *RuntimeHost) Raise(code severity.Code, message string) {
	h.raise(code, message)
}

func (h *RuntimeHost) raise(code severity.Code, message string) {
	trace := applicationTrace(0)
	loc := locationOf(trace)
	t := h.note(LastFault{Code: code, Message: message, Location: loc, Trace: trace})
	if t != nil {
		t.OnRecoverableSignal(code, message, loc)
	}
}

type hostKey struct{}

// ContextWithHost returns ctx carrying h for Raise.
func ContextWithHost(ctx context.Context, h *RuntimeHost) context.Context {
	return context.WithValue(ctx, hostKey{}, h)
}

// HostFrom returns the host carried by ctx.
func HostFrom(ctx context.Context) (*RuntimeHost, bool) {
	h, ok := ctx.Value(hostKey{}).(*RuntimeHost)
	return h, ok && h != nil
}

// Raise signals a recoverable fault to the host carried by ctx. Without a
// host the fault is logged and dropped.
func Raise(ctx context.Context, code severity.Code, message string) {
	h, ok := HostFrom(ctx)
	if !ok {
		slog.WarnContext(ctx, "Fault raised outside a trap scope", logfields.Code(int(code)), logfields.Message(message))
		return
	}
	h.raise(code, message)
}

func locationOf(t fault.Trace) fault.Location {
	if len(t) == 0 {
		return fault.Location{}
	}
	return fault.Location{File: t[0].File, Line: t[0].Line}
}
