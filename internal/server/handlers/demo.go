package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/faultline/internal/severity"
	"git.home.luguber.info/inful/faultline/internal/trap"
)

// DemoHandlers raise faults on request so the pipeline can be exercised
// end to end.
type DemoHandlers struct{}

// NewDemoHandlers creates demo handlers.
func NewDemoHandlers() *DemoHandlers { return &DemoHandlers{} }

// HandleDemo renders a small page. The fault parameter selects what to
// raise: panic, or any severity label such as WARNING or USER_ERROR.
func (h *DemoHandlers) HandleDemo(w http.ResponseWriter, r *http.Request) {
	kind := strings.TrimSpace(r.URL.Query().Get("fault"))
	message := r.URL.Query().Get("message")
	if message == "" {
		message = "demo fault"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, "<!doctype html><html><body><h1>faultline demo</h1><p>fault=%s</p>",
		html.EscapeString(kind))

	switch {
	case kind == "":
	case strings.EqualFold(kind, "panic"):
		panic(message)
	default:
		code, ok := severity.ParseLabel(kind)
		if !ok {
			_, _ = fmt.Fprintf(w, "<p>unknown fault %q</p>", html.EscapeString(kind))
			break
		}
		trap.Raise(r.Context(), code, message)
	}

	_, _ = fmt.Fprint(w, "<p>done</p></body></html>")
}
