// Package recorder keeps the fault history of one request.
package recorder

import (
	"slices"
	"sync"

	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

// Recorder accumulates sealed fault contexts and a sticky fatal flag.
// Create one per request; instances must not be shared across requests.
type Recorder struct {
	mu        sync.RWMutex
	history   []*fault.Context
	hasFaults bool
	fatal     bool
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// Record appends c to the history. The fatal flag only ever turns on here.
func (r *Recorder) Record(c *fault.Context) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, c)
	r.hasFaults = true
	r.fatal = r.fatal || severity.IsFatal(c.Code())
}

// HasFaults reports whether anything was recorded since the last reset.
func (r *Recorder) HasFaults() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasFaults
}

// IsFatal reports whether any recorded fault was fatal since the last reset.
func (r *Recorder) IsFatal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fatal
}

// History returns the recorded contexts in order. The slice is a copy; the
// contexts are shared.
func (r *Recorder) History() []*fault.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.history)
}

// Len returns the number of recorded faults.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history)
}

// Last returns the most recent fault.
func (r *Recorder) Last() (*fault.Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.history) == 0 {
		return nil, false
	}
	return r.history[len(r.history)-1], true
}

// Reset clears history and both flags at once.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	r.hasFaults = false
	r.fatal = false
}
