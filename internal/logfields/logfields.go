package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCode        = "fault_code"
	KeyLabel       = "fault_label"
	KeyGroup       = "fault_group"
	KeyMessage     = "fault_message"
	KeyFile        = "file"
	KeyLine        = "line"
	KeyRequestID   = "request_id"
	KeyFingerprint = "fingerprint"
	KeyMode        = "presentation_mode"
	KeyTemplate    = "template"
	KeyStep        = "step"
	KeyHandler     = "handler"
	KeyTopic       = "topic"
	KeyDurationMS  = "duration_ms"
	KeyMethod      = "method"
	KeyPath        = "path"
	KeyStatus      = "status"
	KeyRemoteAddr  = "remote_addr"
	KeyUserAgent   = "user_agent"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Code(c int) slog.Attr            { return slog.Int(KeyCode, c) }
func Label(l string) slog.Attr        { return slog.String(KeyLabel, l) }
func Group(g string) slog.Attr        { return slog.String(KeyGroup, g) }
func Message(m string) slog.Attr      { return slog.String(KeyMessage, m) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Line(n int) slog.Attr            { return slog.Int(KeyLine, n) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Fingerprint(f string) slog.Attr  { return slog.String(KeyFingerprint, f) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Template(p string) slog.Attr     { return slog.String(KeyTemplate, p) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func Handler(name string) slog.Attr   { return slog.String(KeyHandler, name) }
func Topic(t string) slog.Attr        { return slog.String(KeyTopic, t) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
