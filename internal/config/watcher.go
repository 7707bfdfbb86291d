package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher calls a handler when one of its files is written or replaced.
type Watcher struct {
	logger   zerolog.Logger
	debounce time.Duration
	poll     time.Duration

	mu       sync.Mutex
	handlers map[string]func()
	timers   map[string]*time.Timer
}

// NewWatcher creates a watcher with a 50ms debounce.
func NewWatcher(logger zerolog.Logger) *Watcher {
	return &Watcher{
		logger:   logger.With().Str("component", "watcher").Logger(),
		debounce: 50 * time.Millisecond,
		poll:     time.Second,
		handlers: make(map[string]func()),
		timers:   make(map[string]*time.Timer),
	}
}

// On registers fn for path. Register before Run.
func (w *Watcher) On(path string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[filepath.Clean(path)] = fn
}

// Run watches until ctx is done. The containing directories are watched so
// files that do not exist yet, or are replaced by rename, are still seen.
// If fsnotify is unavailable it falls back to polling modification times.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn().Err(err).Msg("fsnotify not available, falling back to polling")
		return w.runPolling(ctx)
	}
	defer fw.Close()

	for _, dir := range w.dirs() {
		if err := fw.Add(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("failed to watch directory, falling back to polling")
			return w.runPolling(ctx)
		}
	}
	w.logger.Info().Strs("dirs", w.dirs()).Msg("config watcher started")

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("fsnotify events closed")
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.trigger(filepath.Clean(event.Name))

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors closed")
			}
			w.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) trigger(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fn, ok := w.handlers[path]
	if !ok {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.logger.Debug().Str("path", path).Msg("file changed")
		fn()
	})
}

func (w *Watcher) runPolling(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	last := make(map[string]time.Time)
	for _, path := range w.paths() {
		if info, err := os.Stat(path); err == nil {
			last[path] = info.ModTime()
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case <-ticker.C:
			for _, path := range w.paths() {
				info, err := os.Stat(path)
				if err != nil {
					continue
				}
				if info.ModTime().After(last[path]) {
					last[path] = info.ModTime()
					w.trigger(path)
				}
			}
		}
	}
}

func (w *Watcher) paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.handlers))
	for p := range w.handlers {
		out = append(out, p)
	}
	return out
}

func (w *Watcher) dirs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range w.paths() {
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	return out
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.timers {
		t.Stop()
	}
}
