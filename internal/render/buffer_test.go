package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferStack_LIFO(t *testing.T) {
	var out bytes.Buffer
	s := NewBufferStack(&out)

	s.Push()
	_, _ = s.Write([]byte("outer "))
	s.Push()
	_, _ = s.Write([]byte("inner"))
	assert.Equal(t, 2, s.Depth())

	content, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, "inner", content)

	require.NoError(t, s.Flush())
	assert.Equal(t, "outer ", out.String())
	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestBufferStack_FlushFoldsLevels(t *testing.T) {
	var out bytes.Buffer
	s := NewBufferStack(&out)
	s.Push()
	_, _ = s.Write([]byte("a"))
	s.Push()
	_, _ = s.Write([]byte("b"))

	require.NoError(t, s.Flush())
	assert.Equal(t, "ab", out.String())
	assert.Equal(t, 0, s.Depth())
}

func TestBufferStack_DrainAll(t *testing.T) {
	var out bytes.Buffer
	s := NewBufferStack(&out)
	for range 3 {
		s.Push()
		_, _ = s.Write([]byte("x"))
	}
	assert.Equal(t, 3, s.DrainAll())
	assert.Equal(t, 0, s.DrainAll())
	assert.Empty(t, out.String())
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte("A"), 0o600))
	src := FileSource{Root: dir}

	text, err := src.Load("a.html")
	require.NoError(t, err)
	assert.Equal(t, "A", text)

	_, err = src.Load("missing.html")
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestWatchingSource_InvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.html")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	src, err := NewWatchingSource(FileSource{Root: dir}, nil)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	text, err := src.Load("a.html")
	require.NoError(t, err)
	assert.Equal(t, "v1", text)
	assert.True(t, src.Cached("a.html"))

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))
	require.Eventually(t, func() bool { return !src.Cached("a.html") }, 2*time.Second, 10*time.Millisecond)

	text, err = src.Load("a.html")
	require.NoError(t, err)
	assert.Equal(t, "v2", text)
}

func TestWatchingSource_ChangeDuringLoadIsNotCached(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte("v1"), 0o600))

	src, err := NewWatchingSource(FileSource{Root: dir}, nil)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	full := src.files.Resolve("a.html")
	gen := src.watch(full)
	src.invalidate(full)
	src.store(full, "v1", gen)
	assert.False(t, src.Cached("a.html"))

	_, err = src.Load("missing.html")
	require.Error(t, err)
	src.mu.RLock()
	assert.True(t, src.watched[dir])
	src.mu.RUnlock()
}
