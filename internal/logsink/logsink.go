// Package logsink is the leveled logging collaborator of the fault pipeline and
// the event subscriber that feeds it.
package logsink

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"git.home.luguber.info/inful/faultline/internal/callable"
	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

// Level is a sink log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelWarning
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelNotice:
		return "notice"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Sink receives leveled messages with a flat field map. Return values are
// ignored by callers; implementations must not block for long.
type Sink interface {
	Log(level Level, message string, fields map[string]any)
}

// LevelFor maps a severity code onto a sink level.
func LevelFor(code severity.Code) Level {
	g := severity.GroupOf(code)
	switch {
	case g.Has(severity.InFatal):
		return LevelCritical
	case g.Has(severity.InWarning):
		return LevelWarning
	case g.Has(severity.InNotice):
		return LevelNotice
	case g.Has(severity.InDeprecated):
		return LevelInfo
	default:
		return LevelError
	}
}

// Extra slog levels for notice and critical.
const (
	SlogLevelNotice   = slog.Level(2)
	SlogLevelCritical = slog.Level(12)
)

// SlogLevel converts a sink level to slog.
func SlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelNotice:
		return SlogLevelNotice
	case LevelWarning:
		return slog.LevelWarn
	case LevelCritical:
		return SlogLevelCritical
	default:
		return slog.LevelError
	}
}

// ReplaceLevelNames renders the custom slog levels by name. Use it as
// slog.HandlerOptions.ReplaceAttr.
func ReplaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok {
		switch lvl {
		case SlogLevelNotice:
			a.Value = slog.StringValue("NOTICE")
		case SlogLevelCritical:
			a.Value = slog.StringValue("CRITICAL")
		}
	}
	return a
}

// SlogSink writes to an slog.Logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps logger; nil means slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Log implements Sink. Fields are emitted in key order.
func (s *SlogSink) Log(level Level, message string, fields map[string]any) {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	s.logger.LogAttrs(context.Background(), SlogLevel(level), message, attrs...)
}

// Subscriber logs every fault whose code intersects the threshold mask.
type Subscriber struct {
	sink      Sink
	enabled   bool
	threshold severity.Code
}

// NewSubscriber returns a subscriber writing to sink. A zero threshold logs
// every code.
func NewSubscriber(sink Sink, enabled bool, threshold severity.Code) *Subscriber {
	if threshold == 0 {
		threshold = severity.CodeAll
	}
	return &Subscriber{sink: sink, enabled: enabled, threshold: threshold}
}

// Handle implements the fault.captured handler.
func (s *Subscriber) Handle(c *fault.Context) error {
	if !s.enabled || s.sink == nil {
		return nil
	}
	if !c.Code().Intersects(s.threshold) {
		return nil
	}
	s.sink.Log(LevelFor(c.Code()), c.Message(), c.Fields())
	return nil
}

// Handler returns the subscriber as a bus handler.
func (s *Subscriber) Handler() callable.Callable[*fault.Context, error] {
	return callable.Method(s, "Handle", s.Handle)
}
