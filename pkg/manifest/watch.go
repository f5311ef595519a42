package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Source holds the current manifest of a file and reloads it when the file
// changes on disk.
type Source struct {
	path     string
	debounce time.Duration
	logger   *logrus.Entry

	mu      sync.RWMutex
	current *Manifest
	extra   []Application
}

// NewSource loads path once. extra applications (declared inline in the
// configuration) are merged into every loaded manifest.
func NewSource(path string, extra []Application, logger *logrus.Entry) (*Source, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	s := &Source{
		path:     path,
		debounce: 200 * time.Millisecond,
		logger:   logger.WithField("component", "manifest"),
		extra:    extra,
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the last successfully loaded manifest.
func (s *Source) Current() *Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Source) reload() error {
	m := &Manifest{}
	if s.path != "" {
		var err error
		if m, err = Load(s.path); err != nil {
			return err
		}
	}
	m.Merge(s.extra)
	s.mu.Lock()
	s.current = m
	s.mu.Unlock()
	return nil
}

// Watch reloads the manifest whenever its file is written, created or
// renamed, until ctx is done. Events are debounced; a manifest that fails to
// parse is logged and the previous one is kept. onReload, if not nil, is
// called after every successful reload.
func (s *Source) Watch(ctx context.Context, onReload func(*Manifest)) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// the directory survives editors that replace the file
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(s.debounce)
				} else {
					timer.Reset(s.debounce)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.WithError(err).Warn("manifest watcher error")
			case <-fire:
				fire = nil
				if err := s.reload(); err != nil {
					s.logger.WithError(err).Warn("keeping previous manifest")
					continue
				}
				s.logger.WithField("path", s.path).Debug("manifest reloaded")
				if onReload != nil {
					onReload(s.Current())
				}
			}
		}
	}()
	return nil
}
