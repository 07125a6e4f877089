package render

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/faultline/internal/config"
	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/logfields"
)

// Observer receives render timings.
type Observer interface {
	ObserveRender(mode string, d time.Duration, fallback bool)
}

// Result describes one render call.
type Result struct {
	Mode     config.Mode
	Template string
	Output   string
	Fallback bool
	Err      error
}

// Renderer produces fault output. It is not safe for concurrent Render calls
// on the same BufferStack; create one per request.
type Renderer struct {
	cfg         config.RenderConfig
	buffers     *BufferStack
	source      TemplateSource
	interactive bool
	logger      *slog.Logger
	observer    Observer
	markdown    goldmark.Markdown
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSource sets the template source. The default reads from disk.
func WithSource(s TemplateSource) Option {
	return func(r *Renderer) { r.source = s }
}

// WithProbe sets the execution-mode probe; it is consulted once.
func WithProbe(p Probe) Option {
	return func(r *Renderer) { r.interactive = p.Interactive() }
}

// WithLogger sets the logger used for template failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithObserver reports render timings.
func WithObserver(o Observer) Option {
	return func(r *Renderer) { r.observer = o }
}

// New returns a Renderer writing through buffers. Without a probe the
// renderer is headless.
func New(cfg config.RenderConfig, buffers *BufferStack, opts ...Option) *Renderer {
	r := &Renderer{
		cfg:      cfg,
		buffers:  buffers,
		source:   FileSource{},
		logger:   slog.Default(),
		markdown: goldmark.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Interactive reports the probed execution mode.
func (r *Renderer) Interactive() bool { return r.interactive }

// ResolveTemplate picks the template path for a render call. In production
// per-mode templates are not used, so output never carries development
// detail.
func (r *Renderer) ResolveTemplate(override string) string {
	if override != "" {
		return override
	}
	if r.cfg.Development() {
		if p := r.cfg.TemplatePathByMode[r.cfg.PresentationMode]; p != "" {
			return p
		}
	}
	return r.cfg.FallbackTemplatePath
}

// Render renders c and writes it according to the presentation mode. It
// never fails; problems are reported in Result.Err and degrade to a one-line
// message.
func (r *Renderer) Render(c *fault.Context, override string) Result {
	start := time.Now()
	res := Result{Mode: r.cfg.PresentationMode, Template: r.ResolveTemplate(override)}

	content, err := r.content(c, res.Template)
	if err != nil {
		res.Err = err
		res.Fallback = true
		r.logger.Warn("Fault template unavailable, using minimal output",
			logfields.Template(res.Template), logfields.Error(err))
		content = html.EscapeString(OneLine(c))
	}
	if res.Template == "" {
		res.Fallback = true
	}

	res.Output = r.present(content)
	if r.observer != nil {
		r.observer.ObserveRender(string(res.Mode), time.Since(start), res.Fallback)
	}
	return res
}

// content returns the substituted template text, or the minimal message when
// no template is configured.
func (r *Renderer) content(c *fault.Context, path string) (string, error) {
	isMarkdown := strings.EqualFold(filepath.Ext(path), ".md")
	radius := 0
	if r.cfg.Development() {
		radius = r.cfg.SnippetRadius
	}

	if path == "" {
		return html.EscapeString(OneLine(c)), nil
	}

	text, err := r.source.Load(path)
	if err != nil {
		return "", err
	}
	out := Substitute(text, Tokens(c, radius, !isMarkdown))
	if isMarkdown {
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(out), &buf); err != nil {
			return "", err
		}
		out = buf.String()
	}
	return out, nil
}

// Overlay container styling.
const (
	overlayOpen  = `<div class="faultline-overlay" style="position:fixed;top:1rem;right:1rem;left:1rem;z-index:2147483647;max-height:90vh;overflow:auto;background:#fff;border:2px solid #c0392b;padding:1rem">`
	overlayClose = `</div>`
	overlayRule  = "========================================"
)

func (r *Renderer) present(content string) string {
	if !r.interactive {
		content = StripMarkup(content)
	}
	var out string
	switch r.cfg.PresentationMode {
	case config.ModeOverlay:
		if r.interactive {
			out = overlayOpen + content + overlayClose
		} else {
			out = "\n" + overlayRule + "\n" + content + "\n" + overlayRule + "\n"
		}
		r.write(out)
	case config.ModeAppend:
		out = content
		if !r.interactive {
			out = "\n" + content + "\n"
		}
		r.write(out)
	default:
		out = content
		if !r.interactive {
			out += "\n"
		}
		r.buffers.DrainAll()
		if err := r.buffers.WriteBase([]byte(out)); err != nil {
			r.logger.Warn("Fault output write failed", logfields.Error(err))
		}
	}
	return out
}

func (r *Renderer) write(s string) {
	if _, err := r.buffers.Write([]byte(s)); err != nil {
		r.logger.Warn("Fault output write failed", logfields.Error(err))
	}
}

// OneLine is the minimal fault text used when no template can be rendered.
func OneLine(c *fault.Context) string {
	loc := c.Location()
	if loc.File == "" {
		return fmt.Sprintf("%s: %s", c.Label(), c.Message())
	}
	return fmt.Sprintf("%s: %s in %s:%d", c.Label(), c.Message(), loc.File, loc.Line)
}
