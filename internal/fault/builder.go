package fault

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/faultline/internal/severity"
)

// Builder assembles a Context.
type Builder struct {
	c Context
}

// New starts a Context for code and message, stamped with the current time.
func New(code severity.Code, message string) *Builder {
	return &Builder{c: Context{code: code, message: message, timestamp: time.Now()}}
}

// FromPanic starts a Context for a recovered panic value. Errors that carry
// their own severity code (see Coded) keep it; everything else is CodeError.
func FromPanic(v any) *Builder {
	code := severity.CodeError
	var cause error
	var message string
	switch val := v.(type) {
	case error:
		cause = val
		message = val.Error()
		if coded, ok := val.(Coded); ok {
			code = coded.SeverityCode()
		}
	case string:
		message = val
	default:
		message = fmt.Sprint(val)
	}
	b := New(code, message)
	b.c.cause = cause
	return b
}

// Coded is implemented by errors that know their severity code.
type Coded interface {
	SeverityCode() severity.Code
}

// At sets the source location.
func (b *Builder) At(file string, line int) *Builder {
	b.c.location = Location{File: file, Line: line}
	return b
}

// AtLocation sets the source location.
func (b *Builder) AtLocation(loc Location) *Builder {
	b.c.location = loc
	return b
}

// WithTrace sets the trace. When no location has been set, the first frame
// becomes the location.
func (b *Builder) WithTrace(t Trace) *Builder {
	b.c.trace = t
	if b.c.location.File == "" && len(t) > 0 {
		b.c.location = Location{File: t[0].File, Line: t[0].Line}
	}
	return b
}

// WithTimestamp overrides the capture time.
func (b *Builder) WithTimestamp(t time.Time) *Builder {
	b.c.timestamp = t
	return b
}

// WithCause sets the underlying error.
func (b *Builder) WithCause(err error) *Builder {
	b.c.cause = err
	return b
}

// With adds a custom payload entry.
func (b *Builder) With(key string, value any) *Builder {
	if b.c.data == nil {
		b.c.data = make(map[string]any)
	}
	b.c.data[key] = value
	return b
}

// Build returns an unsealed Context. The builder may be reused; each call
// returns an independent copy.
func (b *Builder) Build() *Context {
	return b.c.Clone()
}
