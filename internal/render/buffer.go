package render

import (
	"bytes"
	"io"
	"sync"
)

// BufferStack models nested output buffers on top of a base writer. Writes
// go to the innermost level, or straight to the base when no level is open.
type BufferStack struct {
	mu     sync.Mutex
	base   io.Writer
	levels []*bytes.Buffer
}

// NewBufferStack returns an empty stack writing to base.
func NewBufferStack(base io.Writer) *BufferStack {
	return &BufferStack{base: base}
}

// Push opens a new innermost buffer.
func (s *BufferStack) Push() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, &bytes.Buffer{})
}

// Pop closes the innermost buffer and returns its content without emitting
// it. ok is false when the stack is empty.
func (s *BufferStack) Pop() (content string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pop()
}

func (s *BufferStack) pop() (string, bool) {
	n := len(s.levels)
	if n == 0 {
		return "", false
	}
	top := s.levels[n-1]
	s.levels = s.levels[:n-1]
	return top.String(), true
}

// Depth returns the number of open buffers.
func (s *BufferStack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.levels)
}

// DrainAll discards every open buffer, innermost first, and returns how many
// were discarded.
func (s *BufferStack) DrainAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for {
		if _, ok := s.pop(); !ok {
			return n
		}
		n++
	}
}

// Flush closes every open buffer, innermost first, folding each into the
// level below and the last one into the base writer.
func (s *BufferStack) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.levels) > 0 {
		content, _ := s.pop()
		if err := s.writeLocked([]byte(content)); err != nil {
			return err
		}
	}
	return nil
}

// Write implements io.Writer against the innermost level.
func (s *BufferStack) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteBase writes directly to the base writer, bypassing open buffers.
func (s *BufferStack) WriteBase(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.base.Write(p)
	return err
}

func (s *BufferStack) writeLocked(p []byte) error {
	if n := len(s.levels); n > 0 {
		s.levels[n-1].Write(p)
		return nil
	}
	_, err := s.base.Write(p)
	return err
}
