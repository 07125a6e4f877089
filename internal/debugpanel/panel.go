// Package debugpanel collects the faults of one request and renders them with
// on-demand metrics for development builds.
package debugpanel

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/faultline/internal/callable"
	"git.home.luguber.info/inful/faultline/internal/events"
	"git.home.luguber.info/inful/faultline/internal/fault"
)

// Producer computes a metric value when the panel is read.
type Producer func() any

type metric struct {
	name     string
	producer Producer
}

// Panel is the per-request debug panel. It only reads the faults it receives.
type Panel struct {
	mu      sync.Mutex
	faults  []*fault.Context
	metrics []metric
}

// New returns an empty panel.
func New() *Panel {
	return &Panel{}
}

// Attach subscribes the panel to captured faults on bus.
func (p *Panel) Attach(bus *events.Bus) (func(), error) {
	return bus.Subscribe(events.TopicFaultCaptured, callable.Method(p, "Handle", p.Handle))
}

// Handle appends c to the fault log.
func (p *Panel) Handle(c *fault.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults = append(p.faults, c)
	return nil
}

// AddMetric registers a lazily evaluated metric. Registering a name again
// replaces its producer.
func (p *Panel) AddMetric(name string, producer Producer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.metrics {
		if p.metrics[i].name == name {
			p.metrics[i].producer = producer
			return
		}
	}
	p.metrics = append(p.metrics, metric{name: name, producer: producer})
}

// Len returns the number of logged faults.
func (p *Panel) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.faults)
}

// Entry is a fault as shown by the panel.
type Entry struct {
	Label     string
	Group     string
	Message   string
	Location  string
	Timestamp time.Time
	Trace     string
}

// Metric is an evaluated metric.
type Metric struct {
	Name    string
	Heading string
	Value   string
}

// Snapshot is the panel state at one point in time.
type Snapshot struct {
	Faults  []Entry
	Metrics []Metric
}

// Snapshot evaluates every metric producer and copies the fault log.
func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	faults := append([]*fault.Context(nil), p.faults...)
	metrics := append([]metric(nil), p.metrics...)
	p.mu.Unlock()

	title := cases.Title(language.English)
	snap := Snapshot{
		Faults:  make([]Entry, 0, len(faults)),
		Metrics: make([]Metric, 0, len(metrics)),
	}
	for _, c := range faults {
		snap.Faults = append(snap.Faults, Entry{
			Label:     c.Label(),
			Group:     c.Group().String(),
			Message:   c.Message(),
			Location:  c.Location().String(),
			Timestamp: c.Timestamp(),
			Trace:     c.Trace().String(),
		})
	}
	for _, m := range metrics {
		snap.Metrics = append(snap.Metrics, Metric{
			Name:    m.name,
			Heading: title.String(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(m.name)),
			Value:   evaluate(m.producer),
		})
	}
	return snap
}

func evaluate(p Producer) (value string) {
	defer func() {
		if r := recover(); r != nil {
			value = fmt.Sprintf("error: %v", r)
		}
	}()
	if p == nil {
		return ""
	}
	return fmt.Sprint(p())
}

var panelTemplate = template.Must(template.New("panel").Parse(panelHTML))

// Render writes the panel as HTML.
func (p *Panel) Render(w io.Writer) error {
	return panelTemplate.Execute(w, p.Snapshot())
}

// RenderText writes the panel as plain text.
func (p *Panel) RenderText(w io.Writer) error {
	snap := p.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "Debug panel: %d fault(s)\n", len(snap.Faults))
	for i, f := range snap.Faults {
		fmt.Fprintf(&b, "%d. [%s] %s at %s\n", i+1, f.Label, f.Message, f.Location)
	}
	for _, m := range snap.Metrics {
		fmt.Fprintf(&b, "%s: %s\n", m.Heading, m.Value)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

const panelHTML = `<div class="faultline-debug" style="font-family:monospace;border-top:3px solid #c0392b;margin-top:2rem;padding:1rem;background:#fafafa">
<h2>Debug Panel</h2>
<h3>Faults ({{len .Faults}})</h3>
{{- if .Faults}}
<ol>
{{- range .Faults}}
<li><strong>{{.Label}}</strong> <em>{{.Group}}</em> {{.Message}} <code>{{.Location}}</code>{{if .Trace}}<pre>{{.Trace}}</pre>{{end}}</li>
{{- end}}
</ol>
{{- else}}
<p>No faults.</p>
{{- end}}
{{- if .Metrics}}
<h3>Metrics</h3>
<dl>
{{- range .Metrics}}
<dt>{{.Heading}}</dt><dd>{{.Value}}</dd>
{{- end}}
</dl>
{{- end}}
</div>
`
