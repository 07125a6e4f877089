package render

import (
	"net/http"
	"strings"
)

// Probe reports whether output is consumed interactively (markup kept) or
// headlessly (markup stripped).
type Probe interface {
	Interactive() bool
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func() bool

func (f ProbeFunc) Interactive() bool { return f() }

var (
	// Headless strips markup.
	Headless Probe = ProbeFunc(func() bool { return false })
	// Interactive keeps markup.
	Interactive Probe = ProbeFunc(func() bool { return true })
)

// RequestProbe treats requests that accept HTML as interactive.
func RequestProbe(r *http.Request) Probe {
	return ProbeFunc(func() bool {
		return strings.Contains(r.Header.Get("Accept"), "text/html")
	})
}
