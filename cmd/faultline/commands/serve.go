package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/faultline/internal/config"
	"git.home.luguber.info/inful/faultline/internal/faultstore"
	"git.home.luguber.info/inful/faultline/internal/forward"
	"git.home.luguber.info/inful/faultline/internal/logfields"
	"git.home.luguber.info/inful/faultline/internal/metrics"
	"git.home.luguber.info/inful/faultline/internal/middleware"
	"git.home.luguber.info/inful/faultline/internal/render"
	"git.home.luguber.info/inful/faultline/internal/retry"
	"git.home.luguber.info/inful/faultline/internal/server/httpserver"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr     string `help:"Listen address; defaults to server.addr from the configuration"`
	NoWatch  bool   `name:"no-watch" help:"Do not reload templates when they change on disk"`
	Revision string `help:"Git work tree whose HEAD is attached to every fault" default:"."`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := s.assemble(ctx, cfg, root.templateRoot())
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.server.Start(ctx); err != nil {
		return err
	}
	slog.Info("Serving faults",
		slog.String("addr", app.server.Addr()),
		logfields.Mode(string(cfg.Render.PresentationMode)),
		slog.String("environment", string(cfg.Render.Environment)))

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping server...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return app.server.Stop(stopCtx)
}

type serveApp struct {
	server  *httpserver.Server
	closers []func() error
}

func (a *serveApp) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("Shutdown step failed", logfields.Error(err))
		}
	}
}

// assemble builds the shared pipeline collaborators and the HTTP server.
// On error, anything already opened is closed.
func (s *ServeCmd) assemble(ctx context.Context, cfg *config.Config, templateRoot string) (_ *serveApp, err error) {
	app := &serveApp{}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	reg := prometheus.NewRegistry()
	shared := newShared(cfg.Render, render.FileSource{Root: templateRoot}, metrics.NewPrometheusRecorder(reg))

	if !s.NoWatch {
		ws, werr := render.NewWatchingSource(render.FileSource{Root: templateRoot}, slog.Default())
		if werr != nil {
			return nil, werr
		}
		app.closers = append(app.closers, ws.Close)
		shared.Templates = ws
	}

	if step, rerr := middleware.Revision(s.Revision); rerr == nil {
		shared.Steps = append(shared.Steps, step)
	} else {
		slog.Debug("Source revision not attached", logfields.Error(rerr))
	}

	var store faultstore.Store
	if cfg.Journal.Enabled {
		sqlite, serr := faultstore.NewSQLiteStore(cfg.Journal.Path)
		if serr != nil {
			return nil, serr
		}
		store = sqlite
		app.closers = append(app.closers, sqlite.Close)
		shared.Subscribers = append(shared.Subscribers, faultstore.NewJournal(sqlite).Handler())

		retention, rerr := faultstore.NewRetention(sqlite, cfg.Journal.Retention, cfg.Journal.PruneInterval)
		if rerr != nil {
			return nil, rerr
		}
		retention.Start()
		app.closers = append(app.closers, retention.Stop)
	}

	if cfg.Forward.Enabled {
		policy := retry.NewPolicy(cfg.Forward.Backoff, cfg.Forward.RetryDelay, 0, cfg.Forward.MaxRetries)
		fwd, ferr := forward.Connect(ctx, cfg.Forward.URL, cfg.Forward.Subject, forward.WithRetry(policy))
		if ferr != nil {
			return nil, fmt.Errorf("fault forwarding: %w", ferr)
		}
		app.closers = append(app.closers, fwd.Close)
		shared.Subscribers = append(shared.Subscribers, fwd.Handler())
	}

	app.server, err = httpserver.New(cfg, httpserver.Options{
		Shared:  shared,
		Store:   store,
		Metrics: metrics.HTTPHandler(reg),
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}
