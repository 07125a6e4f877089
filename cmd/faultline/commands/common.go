// Package commands implements the faultline CLI subcommands.
package commands

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/faultline/internal/config"
	"git.home.luguber.info/inful/faultline/internal/logsink"
	"git.home.luguber.info/inful/faultline/internal/metrics"
	"git.home.luguber.info/inful/faultline/internal/render"
	"git.home.luguber.info/inful/faultline/internal/scope"
)

// Global carries process-wide state into subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"faultline.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init       InitCmd       `cmd:"" help:"Write an example configuration file"`
	Serve      ServeCmd      `cmd:"" help:"Run the demo HTTP server with per-request fault trapping"`
	Render     RenderCmd     `cmd:"" help:"Raise a synthetic fault and render it to stdout"`
	Journal    JournalCmd    `cmd:"" help:"List faults recorded in the journal"`
	ShowConfig ShowConfigCmd `cmd:"" name:"show-config" help:"Print the effective configuration"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(NewLogger(os.Stderr, level, config.LogFormatText))
	return nil
}

// NewLogger builds the process logger. Fault levels without an slog
// counterpart are printed by name.
func NewLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: logsink.ReplaceLevelNames}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LoadConfig loads the configured file, falling back to defaults when it
// does not exist, and applies its logging section unless --verbose is set.
func (c *CLI) LoadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if _, statErr := os.Stat(c.Config); errors.Is(statErr, fs.ErrNotExist) {
		slog.Debug("Configuration file not found, using defaults", slog.String("path", c.Config))
		cfg, err = config.Default()
	} else {
		cfg, err = config.Load(c.Config)
	}
	if err != nil {
		return nil, err
	}
	if !c.Verbose {
		slog.SetDefault(NewLogger(os.Stderr,
			config.NormalizeLogLevel(cfg.Logging.Level).Slog(),
			config.NormalizeLogFormat(cfg.Logging.Format)))
	}
	return cfg, nil
}

// templateRoot resolves relative template paths against the config file.
func (c *CLI) templateRoot() string {
	return filepath.Dir(c.Config)
}

// newShared assembles the collaborators every fault scope of a command uses.
func newShared(cfg config.RenderConfig, templates render.TemplateSource, rec metrics.Recorder) *scope.Shared {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &scope.Shared{
		Config:    cfg,
		Metrics:   rec,
		Templates: templates,
		Logger:    slog.Default(),
	}
}
