package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/faultstore"
	"git.home.luguber.info/inful/faultline/internal/trap"
)

type harness struct {
	root *CLI
	g    *Global
	out  *bytes.Buffer
	dir  string
}

func newHarness(t *testing.T, configYAML string) harness {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "faultline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "error.html"),
		[]byte("<h1>{{label}}</h1><p>{{message}}</p>"), 0o600))
	out := &bytes.Buffer{}
	return harness{
		root: &CLI{Config: path},
		g:    &Global{Logger: slog.Default(), Out: out},
		out:  out,
		dir:  dir,
	}
}

const productionConfig = `environment: production
logging:
  level: error
render:
  mode: full
  fallback_template: error.html
`

func TestRender_RecoverableHeadless(t *testing.T) {
	h := newHarness(t, productionConfig)
	cmd := &RenderCmd{Label: "WARNING", Message: "disk low"}

	require.NoError(t, cmd.Run(h.g, h.root))
	assert.Equal(t, "WARNING\n\ndisk low\n", h.out.String())
}

func TestRender_PanicHalts(t *testing.T) {
	h := newHarness(t, productionConfig)
	cmd := &RenderCmd{Message: "boom", Panic: true}

	err := cmd.Run(h.g, h.root)
	require.ErrorIs(t, err, trap.ErrHalted)
	assert.Equal(t, "ERROR\n\nboom\n", h.out.String())
}

func TestRender_HTMLWithOverrides(t *testing.T) {
	h := newHarness(t, productionConfig)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "alt.html"), []byte("<b>{{message}}</b>"), 0o600))
	cmd := &RenderCmd{Label: "NOTICE", Message: "hi", HTML: true, Mode: "append", Template: "alt.html"}

	require.NoError(t, cmd.Run(h.g, h.root))
	assert.Equal(t, "<b>hi</b>", h.out.String())
}

func TestRender_Panel(t *testing.T) {
	h := newHarness(t, `environment: development
logging:
  level: error
render:
  mode: append
  debug_panel: true
  snippet_radius: 0
  fallback_template: error.html
`)
	cmd := &RenderCmd{Label: "NOTICE", Message: "cache miss", Panel: true}

	require.NoError(t, cmd.Run(h.g, h.root))
	assert.Contains(t, h.out.String(), "Debug panel: 1 fault(s)")
	assert.Contains(t, h.out.String(), "[NOTICE] cache miss")
}

func TestRender_Validation(t *testing.T) {
	h := newHarness(t, productionConfig)

	err := (&RenderCmd{Label: "NOPE", Message: "x"}).Run(h.g, h.root)
	require.Error(t, err)

	err = (&RenderCmd{Label: "WARNING", Message: "x", Mode: "sideways"}).Run(h.g, h.root)
	require.Error(t, err)
	assert.Empty(t, h.out.String())
}

func TestShowConfig(t *testing.T) {
	h := newHarness(t, productionConfig)

	require.NoError(t, (&ShowConfigCmd{}).Run(h.g, h.root))
	out := h.out.String()
	assert.Contains(t, out, "environment: production")
	assert.Contains(t, out, "mode: full")
	assert.Contains(t, out, "fallback_template: error.html")
	assert.Contains(t, out, "retention: 168h0m0s")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	root := &CLI{Config: filepath.Join(dir, "faultline.yaml")}
	g := &Global{Out: out}

	require.NoError(t, (&InitCmd{}).Run(g, root))
	assert.FileExists(t, root.Config)
	assert.Contains(t, out.String(), "initialized successfully")

	require.Error(t, (&InitCmd{}).Run(g, root))
	require.NoError(t, (&InitCmd{Force: true}).Run(g, root))
}

func TestJournal_ListsJSON(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "faults.db")
	store, err := faultstore.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	now := time.Now()
	for _, r := range []fault.Record{
		{Code: 2, Label: "WARNING", Group: "warning", Message: "ancient", Timestamp: now.Add(-30 * 24 * time.Hour)},
		{Code: 8, Label: "NOTICE", Group: "notice", Message: "fresh", Timestamp: now},
	} {
		_, err := store.Append(t.Context(), r)
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	h := newHarness(t, "logging:\n  level: error\njournal:\n  path: "+dbPath+"\n")
	cmd := &JournalCmd{Limit: 20, JSON: true, Prune: true}
	require.NoError(t, cmd.Run(h.g, h.root))

	var records []fault.Record
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].Message)
}

func TestJournal_Table(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, "logging:\n  level: error\njournal:\n  path: "+filepath.Join(dir, "faults.db")+"\n")

	require.NoError(t, (&JournalCmd{Limit: 5}).Run(h.g, h.root))
	assert.Contains(t, h.out.String(), "TIME")
	assert.Contains(t, h.out.String(), "LABEL")
}
