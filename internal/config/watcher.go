package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler is called with the freshly parsed configuration after the
// config file changes on disk.
type ReloadHandler func(cfg *Config)

// Watcher monitors the config file and reloads it on change. Editors tend
// to emit bursts of write/rename events for a single save, so reloads are
// debounced.
type Watcher struct {
	path          string
	debounceDelay time.Duration
	handler       ReloadHandler
	watcher       *fsnotify.Watcher
	stopChan      chan struct{}
	doneChan      chan struct{}

	mu          sync.Mutex
	reloadTimer *time.Timer
}

// NewWatcher creates a watcher for the given config file. The parent
// directory is watched rather than the file itself so atomic-rename saves
// keep being seen.
func NewWatcher(path string, debounceDelay time.Duration, handler ReloadHandler) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if debounceDelay <= 0 {
		debounceDelay = 500 * time.Millisecond
	}

	return &Watcher{
		path:          filepath.Clean(path),
		debounceDelay: debounceDelay,
		handler:       handler,
		watcher:       fsWatcher,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}, nil
}

// Start begins watching the config file for changes
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go w.processEvents()

	slog.Info("config watcher started",
		"path", w.path,
		"debounce_seconds", w.debounceDelay.Seconds(),
	)
	return nil
}

// Stop stops watching and waits for the event loop to finish
func (w *Watcher) Stop() error {
	close(w.stopChan)
	<-w.doneChan

	w.mu.Lock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

// processEvents handles fsnotify events
func (w *Watcher) processEvents() {
	defer close(w.doneChan)

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}

// handleEvent schedules a reload when the watched file is written, created
// or renamed into place.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	slog.Debug("config file event", "event", event.Op.String())

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
	}
	w.reloadTimer = time.AfterFunc(w.debounceDelay, w.reload)
}

// reload parses the file and hands the result to the handler. A file that
// fails to parse keeps the previous configuration in effect.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous configuration", "error", err)
		return
	}
	slog.Info("configuration reloaded", "path", w.path)
	w.handler(cfg)
}
