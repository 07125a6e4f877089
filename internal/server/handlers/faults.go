package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/faultline/internal/faultstore"
	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/server/responses"
)

// DefaultListLimit caps journal listings without an explicit limit.
const DefaultListLimit = 100

// FaultHandlers expose the fault journal.
type FaultHandlers struct {
	store        faultstore.Store
	now          func() time.Time
	errorAdapter *ferrors.HTTPErrorAdapter
}

// NewFaultHandlers creates journal handlers backed by store.
func NewFaultHandlers(store faultstore.Store) *FaultHandlers {
	return &FaultHandlers{
		store:        store,
		now:          time.Now,
		errorAdapter: ferrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleList lists journaled faults, newest first. Query parameters: since
// (a duration such as 1h), label (WARNING), limit and pretty.
func (h *FaultHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodGet) {
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	records, err := h.store.List(r.Context(), q)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	resp := responses.FaultListResponse{
		Status:    "ok",
		Count:     len(records),
		Faults:    records,
		Timestamp: h.now().UTC(),
	}
	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write fault list").Build())
	}
}

// HandlePrune removes faults older than the older_than duration.
func (h *FaultHandlers) HandlePrune(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodPost) {
		return
	}
	raw := r.URL.Query().Get("older_than")
	age, err := time.ParseDuration(raw)
	if err != nil || age <= 0 {
		h.errorAdapter.WriteErrorResponse(w, r, ferrors.ValidationError("older_than must be a positive duration").
			WithContext("older_than", raw).
			Build())
		return
	}
	before := h.now().Add(-age)
	n, err := h.store.Prune(r.Context(), before)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, responses.PruneResponse{Status: "ok", Removed: n, Before: before.UTC()}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write prune response").Build())
	}
}

func (h *FaultHandlers) parseQuery(r *http.Request) (faultstore.Query, error) {
	values := r.URL.Query()
	q := faultstore.Query{Label: values.Get("label"), Limit: DefaultListLimit}
	if raw := values.Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return q, ferrors.ValidationError("since must be a duration").WithContext("since", raw).Build()
		}
		q.Since = h.now().Add(-d)
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, ferrors.ValidationError("limit must be a non-negative integer").WithContext("limit", raw).Build()
		}
		q.Limit = n
	}
	return q, nil
}
