package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultline/internal/config"
	"git.home.luguber.info/inful/faultline/internal/events"
	"git.home.luguber.info/inful/faultline/internal/faultstore"
	"git.home.luguber.info/inful/faultline/internal/metrics"
	"git.home.luguber.info/inful/faultline/internal/render"
	"git.home.luguber.info/inful/faultline/internal/scope"
)

type fixture struct {
	server *Server
	store  *faultstore.SQLiteStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Render.Environment = config.EnvProduction
	cfg.Render.PresentationMode = config.ModeFull
	cfg.Render.DisplayEnabled = true
	cfg.Render.FallbackTemplatePath = "error.html"

	store, err := faultstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := prometheus.NewRegistry()
	shared := &scope.Shared{
		Config:      cfg.Render,
		Metrics:     metrics.NewPrometheusRecorder(reg),
		Templates:   render.MapSource{"error.html": "<p>{{label}}: {{message}}</p>"},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Subscribers: []events.Handler{faultstore.NewJournal(store).Handler()},
	}
	srv, err := New(cfg, Options{Shared: shared, Store: store, Metrics: metrics.HTTPHandler(reg)})
	require.NoError(t, err)
	return fixture{server: srv, store: store}
}

func (f fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresShared(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	_, err = New(cfg, Options{})
	require.Error(t, err)
}

func TestServer_DemoPanicIsJournaled(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/demo?fault=panic&message=kaboom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "<p>ERROR: kaboom</p>", rec.Body.String())

	records, err := f.store.List(t.Context(), faultstore.Query{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kaboom", records[0].Message)
	assert.NotEmpty(t, records[0].RequestID)
	assert.NotEmpty(t, records[0].Fingerprint)
}

func TestServer_DemoWarningContinues(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/demo?fault=warning&message=slow")
	assert.Equal(t, http.StatusOK, rec.Code)
	// Full mode replaces what was buffered; the handler keeps writing after.
	assert.Equal(t, "<p>WARNING: slow</p><p>done</p></body></html>", rec.Body.String())
}

func TestServer_JournalAndMetricsRoutes(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/demo?fault=notice")

	rec := f.get(t, "/api/faults")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"NOTICE"`)

	rec = f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `faultline_faults_total{group="notice",label="NOTICE"} 1`)

	rec = f.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"journal":true`)
}

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.server.Start(t.Context()))
	require.NotEmpty(t, f.server.Addr())

	resp, err := http.Get("http://" + f.server.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.server.Stop(ctx))
}
