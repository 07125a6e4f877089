package fault

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

// ErrSealed is raised (as a panic) when a sealed Context is mutated.
var ErrSealed = ferrors.InternalError("fault context is sealed").Build()

// Location is the source position a fault is attributed to.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

func (l Location) String() string {
	if l.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Context describes one captured fault.
type Context struct {
	code      severity.Code
	message   string
	location  Location
	trace     Trace
	timestamp time.Time
	data      map[string]any
	cause     error
	sealed    bool
}

// Code returns the severity code.
func (c *Context) Code() severity.Code { return c.code }

// Group returns the computed group membership of the code.
func (c *Context) Group() severity.Set { return severity.GroupOf(c.code) }

// Label returns the severity label.
func (c *Context) Label() string { return severity.Label(c.code) }

// IsFatal reports whether the code is in the fatal group.
func (c *Context) IsFatal() bool { return severity.IsFatal(c.code) }

// Message returns the fault message.
func (c *Context) Message() string { return c.message }

// Location returns the source location.
func (c *Context) Location() Location { return c.location }

// Trace returns a copy of the captured trace.
func (c *Context) Trace() Trace { return slices.Clone(c.trace) }

// Timestamp returns when the fault was captured (or stamped by middleware).
func (c *Context) Timestamp() time.Time { return c.timestamp }

// Cause returns the underlying error of an uncaught fault, if any.
func (c *Context) Cause() error { return c.cause }

// Data returns a copy of the custom payload.
func (c *Context) Data() map[string]any { return maps.Clone(c.data) }

// Value returns one custom payload entry.
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// String returns one custom payload entry as a string.
func (c *Context) String(key string) string {
	if v, ok := c.data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Sealed reports whether the context is read-only.
func (c *Context) Sealed() bool { return c.sealed }

// Seal makes the context read-only. Sealing twice is a no-op.
func (c *Context) Seal() { c.sealed = true }

func (c *Context) mustBeOpen() {
	if c.sealed {
		panic(ErrSealed)
	}
}

// Set stores a custom payload entry.
func (c *Context) Set(key string, value any) {
	c.mustBeOpen()
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[key] = value
}

// SetTimestamp overrides the capture time.
func (c *Context) SetTimestamp(t time.Time) {
	c.mustBeOpen()
	c.timestamp = t
}

// SetMessage replaces the message.
func (c *Context) SetMessage(msg string) {
	c.mustBeOpen()
	c.message = msg
}

// Clone returns an unsealed deep-enough copy: trace and payload map are copied,
// payload values are shared.
func (c *Context) Clone() *Context {
	cp := *c
	cp.trace = slices.Clone(c.trace)
	cp.data = maps.Clone(c.data)
	cp.sealed = false
	return &cp
}

// Equal reports structural equality, ignoring the sealed flag.
func (c *Context) Equal(other *Context) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.code == other.code &&
		c.message == other.message &&
		c.location == other.location &&
		c.timestamp.Equal(other.timestamp) &&
		slices.Equal(c.trace, other.trace) &&
		reflect.DeepEqual(c.data, other.data)
}

// Fields flattens the context for a logging sink.
func (c *Context) Fields() map[string]any {
	fields := map[string]any{
		"code":      int(c.code),
		"label":     c.Label(),
		"group":     c.Group().String(),
		"message":   c.message,
		"file":      c.location.File,
		"line":      c.location.Line,
		"timestamp": c.timestamp.Format(time.RFC3339Nano),
	}
	if len(c.trace) > 0 {
		fields["trace"] = c.trace.String()
	}
	if c.cause != nil {
		fields["cause"] = c.cause.Error()
	}
	for k, v := range c.data {
		if _, taken := fields[k]; taken {
			k = "data." + k
		}
		fields[k] = v
	}
	return fields
}
