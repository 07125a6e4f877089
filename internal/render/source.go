package render

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
)

// ErrTemplateNotFound is returned by a TemplateSource for unknown paths.
var ErrTemplateNotFound = ferrors.NotFoundError("template not found").Build()

// TemplateSource returns raw template text for a resolved path.
type TemplateSource interface {
	Load(path string) (string, error)
}

// FileSource reads templates from disk. Relative paths resolve against Root.
type FileSource struct {
	Root string
}

// Resolve returns the on-disk path for a template path.
func (s FileSource) Resolve(path string) string {
	if s.Root == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.Root, path)
}

func (s FileSource) Load(path string) (string, error) {
	full := s.Resolve(path)
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrTemplateNotFound.WithContext("path", full)
	}
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryTemplate, "failed to read template").
			WithContext("path", full).
			Build()
	}
	return string(data), nil
}

// MapSource serves templates from memory.
type MapSource map[string]string

func (s MapSource) Load(path string) (string, error) {
	if text, ok := s[path]; ok {
		return text, nil
	}
	return "", ErrTemplateNotFound.WithContext("path", path)
}

// WatchingSource caches template text and drops entries when the file
// changes on disk.
type WatchingSource struct {
	files   FileSource
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.RWMutex
	cache   map[string]string
	gens    map[string]uint64
	watched map[string]bool
	done    chan struct{}
}

// NewWatchingSource starts watching for changes below files.Root. Close
// releases the watcher.
func NewWatchingSource(files FileSource, logger *slog.Logger) (*WatchingSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryTemplate, "failed to create template watcher").Build()
	}
	s := &WatchingSource{
		files:   files,
		watcher: w,
		logger:  logger,
		cache:   map[string]string{},
		gens:    map[string]uint64{},
		watched: map[string]bool{},
		done:    make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

func (s *WatchingSource) Load(path string) (string, error) {
	full := s.files.Resolve(path)

	s.mu.RLock()
	text, ok := s.cache[full]
	s.mu.RUnlock()
	if ok {
		return text, nil
	}

	gen := s.watch(full)
	text, err := s.files.Load(path)
	if err != nil {
		return "", err
	}
	s.store(full, text, gen)
	return text, nil
}

// watch adds the directory of full to the watcher and returns the current
// invalidation generation of full.
func (s *WatchingSource) watch(full string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := filepath.Dir(full)
	if !s.watched[dir] {
		if err := s.watcher.Add(dir); err != nil {
			s.logger.Warn("Template directory not watched", "dir", dir, "error", err)
		} else {
			s.watched[dir] = true
		}
	}
	return s.gens[full]
}

// store caches text unless full was invalidated after gen was taken.
func (s *WatchingSource) store(full, text string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[full] == gen {
		s.cache[full] = text
	}
}

// Cached reports whether path is currently cached.
func (s *WatchingSource) Cached(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[s.files.Resolve(path)]
	return ok
}

func (s *WatchingSource) loop() {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.invalidate(filepath.Clean(ev.Name))
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Template watcher error", "error", err)
		}
	}
}

func (s *WatchingSource) invalidate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[path]++
	if _, ok := s.cache[path]; ok {
		delete(s.cache, path)
		s.logger.Debug("Template invalidated", "template", path)
	}
}

// Close stops the watcher.
func (s *WatchingSource) Close() error {
	err := s.watcher.Close()
	<-s.done
	return err
}
