package fault

import "time"

// Record is the serialisable form of a sealed Context, shared by external
// sinks such as the journal and the forwarder.
type Record struct {
	ID          int64          `json:"id,omitempty"`
	Code        int            `json:"code"`
	Label       string         `json:"label"`
	Group       string         `json:"group"`
	Message     string         `json:"message"`
	File        string         `json:"file,omitempty"`
	Line        int            `json:"line,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	RequestID   string         `json:"request_id,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Trace       Trace          `json:"trace,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Well-known payload keys copied into Record fields.
const (
	DataRequestID   = "request_id"
	DataFingerprint = "fingerprint"
)

// Record converts c for export.
func (c *Context) Record() Record {
	return Record{
		Code:        int(c.code),
		Label:       c.Label(),
		Group:       c.Group().String(),
		Message:     c.message,
		File:        c.location.File,
		Line:        c.location.Line,
		Timestamp:   c.timestamp,
		RequestID:   c.String(DataRequestID),
		Fingerprint: c.String(DataFingerprint),
		Trace:       c.Trace(),
		Data:        c.Data(),
	}
}
