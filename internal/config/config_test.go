package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	rc := cfg.Render
	assert.Equal(t, EnvProduction, rc.Environment)
	assert.Equal(t, ModeFull, rc.PresentationMode)
	assert.False(t, rc.DisplayEnabled)
	assert.False(t, rc.ConvertRecoverableToFatal)
	assert.True(t, rc.LogEnabled)
	assert.Equal(t, severity.CodeAll, rc.LogThreshold)
	assert.Equal(t, DefaultSnippetRadius, rc.SnippetRadius)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultRetention, cfg.Journal.Retention)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ExpandsEnvAndBuildsRenderConfig(t *testing.T) {
	t.Setenv("FAULTLINE_TEST_MODE", "Overlay")
	dir := t.TempDir()
	path := writeFile(t, dir, "faultline.yaml", `
environment: dev
logging:
  level: DEBUG
render:
  mode: ${FAULTLINE_TEST_MODE}
  convert_recoverable_to_fatal: "yes"
  log:
    threshold: E_ERROR|E_WARNING
  templates:
    overlay: overlay.html
  fallback_template: error.html
journal:
  enabled: true
  retention: 48h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	rc := cfg.Render
	assert.Equal(t, EnvDevelopment, rc.Environment)
	assert.True(t, rc.Development())
	assert.True(t, rc.DisplayEnabled, "display defaults on in development")
	assert.Equal(t, ModeOverlay, rc.PresentationMode)
	assert.True(t, rc.ConvertRecoverableToFatal)
	assert.Equal(t, severity.CodeError|severity.CodeWarning, rc.LogThreshold)
	assert.Equal(t, map[Mode]string{ModeOverlay: "overlay.html"}, rc.TemplatePathByMode)
	assert.Equal(t, "error.html", rc.FallbackTemplatePath)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 48*time.Hour, cfg.Journal.Retention)

	assert.True(t, cfg.Source().Has("render.templates.overlay"))
	assert.False(t, cfg.Source().Has("render.templates.full"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoad_InvalidMode(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "render:\n  mode: sideways\n")
	_, err := Load(path)
	require.Error(t, err)
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, KeyMode, ce.Context()["key"])
}

func TestMapSource(t *testing.T) {
	src := NewMapSource(map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": []any{1, 2},
		"n": nil,
	})
	assert.Equal(t, []string{"a.b", "a.c.d", "e", "n"}, src.Keys())
	assert.Equal(t, 1, src.Get("a.b", 0))
	assert.Equal(t, "fallback", src.Get("missing", "fallback"))
	assert.Equal(t, "fallback", src.Get("n", "fallback"))
	assert.True(t, src.Has("a.c.d"))
	assert.False(t, src.Has("n"))
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want severity.Code
		err  bool
	}{
		{"nil", nil, severity.CodeAll, false},
		{"int", 3, severity.CodeError | severity.CodeWarning, false},
		{"labels", "ERROR, notice", severity.CodeError | severity.CodeNotice, false},
		{"all", "E_ALL", severity.CodeAll, false},
		{"list", []any{"USER_ERROR", 8}, severity.CodeUserError | severity.CodeNotice, false},
		{"unknown", "E_BOGUS", 0, true},
		{"type", 1.5, 0, true},
		{"zero", 0, 0, true},
		{"zero string", "0", 0, true},
		{"negative", -8, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseThreshold(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, ".env", "FAULTLINE_TEST_A=from-file\nFAULTLINE_TEST_B=from-file\n")
	t.Setenv("FAULTLINE_TEST_A", "from-env")
	t.Setenv("FAULTLINE_TEST_B", "")
	require.NoError(t, os.Unsetenv("FAULTLINE_TEST_B"))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), p))
	assert.Equal(t, "from-env", os.Getenv("FAULTLINE_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("FAULTLINE_TEST_B"))
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faultline.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "templates/error.html", cfg.Render.FallbackTemplatePath)
}

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("Warning"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("bogus"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
}
