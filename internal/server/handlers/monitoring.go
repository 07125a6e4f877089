package handlers

import (
	"log/slog"
	"net/http"
	"time"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/server/responses"
	"git.home.luguber.info/inful/faultline/internal/version"
)

// MonitoringHandlers serves the health endpoint.
type MonitoringHandlers struct {
	started      time.Time
	environment  string
	journal      bool
	errorAdapter *ferrors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates monitoring handlers for a server started now.
func NewMonitoringHandlers(environment string, journal bool) *MonitoringHandlers {
	return &MonitoringHandlers{
		started:      time.Now(),
		environment:  environment,
		journal:      journal,
		errorAdapter: ferrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodGet) {
		return
	}
	health := &responses.HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Version:     version.Version,
		Uptime:      time.Since(h.started).Seconds(),
		Environment: h.environment,
		Journal:     h.journal,
	}
	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write health response").Build())
	}
}
