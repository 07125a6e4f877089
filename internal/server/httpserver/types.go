package httpserver

import (
	"net/http"

	"git.home.luguber.info/inful/faultline/internal/faultstore"
	"git.home.luguber.info/inful/faultline/internal/scope"
)

// Options configures server wiring that depends on the runtime.
type Options struct {
	// Shared builds one fault scope per request. Required.
	Shared *scope.Shared

	// Store backs the journal API. Nil disables /api/faults.
	Store faultstore.Store

	// Metrics serves the Prometheus exposition. Nil disables the metrics path.
	Metrics http.Handler
}
