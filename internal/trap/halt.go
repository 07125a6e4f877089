package trap

import (
	"os"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/fault"
)

// Halter stops further application code after a fatal fault was rendered.
type Halter interface {
	Halt(c *fault.Context)
}

// HaltFunc adapts a function to Halter.
type HaltFunc func(c *fault.Context)

func (f HaltFunc) Halt(c *fault.Context) { f(c) }

// ExitCode is the process exit status after a fatal fault.
const ExitCode = 255

// ExitHalter ends the process.
type ExitHalter struct {
	// Exit defaults to os.Exit.
	Exit func(code int)
}

func (h ExitHalter) Halt(*fault.Context) {
	exit := h.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(ExitCode)
}

type haltSignal struct{}

// PanicHalter unwinds the current goroutine. RuntimeHost.Run and the HTTP
// middleware recognise the signal and stop there.
type PanicHalter struct{}

func (PanicHalter) Halt(*fault.Context) { panic(haltSignal{}) }

// IsHalt reports whether a recovered value is the PanicHalter signal.
func IsHalt(v any) bool {
	_, ok := v.(haltSignal)
	return ok
}

// ErrHalted is returned by RuntimeHost.Run when a fatal fault stopped fn.
var ErrHalted = ferrors.TrapError("execution halted after fatal fault").Build()
