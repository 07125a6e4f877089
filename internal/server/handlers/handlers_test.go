package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/faultstore"
	"git.home.luguber.info/inful/faultline/internal/server/responses"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

func seededStore(t *testing.T, now time.Time) *faultstore.SQLiteStore {
	t.Helper()
	store, err := faultstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	records := []fault.Record{
		{Code: int(severity.CodeWarning), Label: "WARNING", Group: "warning", Message: "old", Timestamp: now.Add(-3 * time.Hour)},
		{Code: int(severity.CodeWarning), Label: "WARNING", Group: "warning", Message: "recent", Timestamp: now.Add(-10 * time.Minute)},
		{Code: int(severity.CodeError), Label: "ERROR", Group: "fatal", Message: "boom", Timestamp: now.Add(-5 * time.Minute)},
	}
	for _, r := range records {
		_, err := store.Append(t.Context(), r)
		require.NoError(t, err)
	}
	return store
}

func TestHandleHealthCheck(t *testing.T) {
	h := NewMonitoringHandlers("production", true)
	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body responses.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "production", body.Environment)
	assert.True(t, body.Journal)
}

func TestHandleHealthCheck_RejectsPost(t *testing.T) {
	h := NewMonitoringHandlers("production", false)
	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid HTTP method")
}

func TestHandleList(t *testing.T) {
	now := time.Now()
	h := NewFaultHandlers(seededStore(t, now))

	tests := []struct {
		name     string
		query    string
		messages []string
	}{
		{name: "all newest first", query: "", messages: []string{"boom", "recent", "old"}},
		{name: "since", query: "?since=1h", messages: []string{"boom", "recent"}},
		{name: "label", query: "?label=WARNING", messages: []string{"recent", "old"}},
		{name: "limit", query: "?limit=1", messages: []string{"boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/faults"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body responses.FaultListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, len(tt.messages), body.Count)
			got := make([]string, 0, len(body.Faults))
			for _, f := range body.Faults {
				got = append(got, f.Message)
			}
			assert.Equal(t, tt.messages, got)
		})
	}
}

func TestHandleList_InvalidQuery(t *testing.T) {
	h := NewFaultHandlers(seededStore(t, time.Now()))
	for _, q := range []string{"?since=yesterday", "?limit=-1", "?limit=x"} {
		rec := httptest.NewRecorder()
		h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/faults"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHandlePrune(t *testing.T) {
	now := time.Now()
	store := seededStore(t, now)
	h := NewFaultHandlers(store)

	rec := httptest.NewRecorder()
	h.HandlePrune(rec, httptest.NewRequest(http.MethodPost, "/api/faults/prune?older_than=1h", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body responses.PruneResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Removed)

	left, err := store.List(t.Context(), faultstore.Query{})
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestHandlePrune_Validation(t *testing.T) {
	h := NewFaultHandlers(seededStore(t, time.Now()))

	rec := httptest.NewRecorder()
	h.HandlePrune(rec, httptest.NewRequest(http.MethodPost, "/api/faults/prune", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandlePrune(rec, httptest.NewRequest(http.MethodGet, "/api/faults/prune?older_than=1h", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDemo_NoFault(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDemoHandlers().HandleDemo(rec, httptest.NewRequest(http.MethodGet, "/demo", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>done</p>")
}

func TestHandleDemo_Panic(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.PanicsWithValue(t, "kaboom", func() {
		NewDemoHandlers().HandleDemo(rec, httptest.NewRequest(http.MethodGet, "/demo?fault=panic&message=kaboom", nil))
	})
}
