package commands

import (
	"errors"
	"fmt"

	"git.home.luguber.info/inful/faultline/internal/config"
	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/render"
	"git.home.luguber.info/inful/faultline/internal/scope"
	"git.home.luguber.info/inful/faultline/internal/severity"
	"git.home.luguber.info/inful/faultline/internal/trap"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	Label    string `short:"l" help:"Severity label such as WARNING or USER_ERROR" default:"ERROR"`
	Message  string `short:"m" help:"Fault message" default:"synthetic fault"`
	Mode     string `help:"Presentation mode (full, overlay, append); defaults to the configured mode"`
	Template string `short:"t" help:"Template to render instead of the configured ones"`
	HTML     bool   `help:"Keep markup as an interactive client would see it"`
	Panic    bool   `help:"Raise the fault as an uncaught panic"`
	Panel    bool   `help:"Print the debug panel after the output"`
}

func (r *RenderCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	rc, err := r.renderConfig(cfg.Render)
	if err != nil {
		return err
	}
	code, ok := severity.ParseLabel(r.Label)
	if !ok && !r.Panic {
		return ferrors.ValidationError(fmt.Sprintf("unknown severity label: %s", r.Label)).Build()
	}

	probe := render.Headless
	if r.HTML {
		probe = render.Interactive
	}
	sc, err := newShared(rc, render.FileSource{Root: root.templateRoot()}, nil).New(scope.Options{
		Name:   "cli",
		Out:    g.Out,
		Probe:  probe,
		Halter: trap.PanicHalter{},
	})
	if err != nil {
		return err
	}

	runErr := sc.Run(func() {
		if r.Panic {
			panic(r.Message)
		}
		sc.Host.Raise(code, r.Message)
	})
	closeErr := sc.Close()
	if err := sc.Buffers.Flush(); err != nil {
		return err
	}
	if r.Panel {
		if r.HTML {
			err = sc.Panel.Render(g.Out)
		} else {
			err = sc.Panel.RenderText(g.Out)
		}
		if err != nil {
			return err
		}
	}
	if errors.Is(runErr, trap.ErrHalted) || errors.Is(closeErr, trap.ErrHalted) {
		return trap.ErrHalted
	}
	return errors.Join(runErr, closeErr)
}

// renderConfig forces display on and applies the flag overrides.
func (r *RenderCmd) renderConfig(rc config.RenderConfig) (config.RenderConfig, error) {
	rc.DisplayEnabled = true
	if r.Mode != "" {
		mode, err := config.NormalizeMode(r.Mode)
		if err != nil {
			return rc, err
		}
		rc.PresentationMode = mode
	}
	if r.Template != "" {
		rc.TemplatePathByMode = nil
		rc.FallbackTemplatePath = r.Template
	}
	return rc, nil
}
