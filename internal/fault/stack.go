package fault

import (
	"fmt"
	"runtime"
	"strings"
)

// Frame is a single call site in a trace.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

func (f Frame) String() string {
	return fmt.Sprintf("%s\n\t%s:%d", f.Function, f.File, f.Line)
}

// Trace is an ordered sequence of frames, most recent call first.
type Trace []Frame

// String renders the trace one numbered frame per line.
func (t Trace) String() string {
	var b strings.Builder
	for i, f := range t {
		fmt.Fprintf(&b, "#%d %s (%s:%d)\n", i, f.Function, f.File, f.Line)
	}
	return b.String()
}

const maxTraceDepth = 64

// CaptureTrace records the calling goroutine's stack, skipping skip frames
// above the caller of CaptureTrace.
func CaptureTrace(skip int) Trace {
	pc := make([]uintptr, maxTraceDepth)
	// +2 skips runtime.Callers and CaptureTrace itself.
	n := runtime.Callers(skip+2, pc)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pc[:n])
	out := make(Trace, 0, n)
	for {
		fr, more := frames.Next()
		out = append(out, Frame{Function: fr.Function, File: fr.File, Line: fr.Line})
		if !more {
			break
		}
	}
	return out
}

// FirstOutside returns the first frame whose function does not start with
// any of the given package prefixes. It is used to point a fault at
// application code rather than at the runtime or the trap.
func (t Trace) FirstOutside(prefixes ...string) (Frame, bool) {
next:
	for _, f := range t {
		for _, p := range prefixes {
			if strings.HasPrefix(f.Function, p) {
				continue next
			}
		}
		return f, true
	}
	return Frame{}, false
}
