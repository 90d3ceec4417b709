package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/agent-speech/internal/logging"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// ChangeHandler is called with the newly loaded config.
type ChangeHandler func(cfg *Config)

// Watcher reloads a config file when it changes and serves the last valid
// version. Changes are debounced; a reload that fails to parse or validate
// is logged and the previous config stays current.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	log      *logging.Logger
	debounce time.Duration

	mu       sync.RWMutex
	current  *Config
	handlers []ChangeHandler

	stopChan chan struct{}
	done     chan struct{}
}

// NewWatcher loads path and prepares a watcher for it.
func NewWatcher(path string, log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  fsWatcher,
		log:      log,
		debounce: defaultDebounce,
		current:  cfg,
	}, nil
}

// Current returns the last valid config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.current
}

// OnChange registers a handler to be called after each successful reload.
func (w *Watcher) OnChange(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers = append(w.handlers, handler)
}

// Start begins watching. The directory is watched rather than the file so
// editors that replace the file on save are picked up.
func (w *Watcher) Start() error {
	err := w.watcher.Add(filepath.Dir(w.path))
	if err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})

	go w.watchLoop()

	w.log.Info("Config watcher started", map[string]string{"path": w.path})

	return nil
}

// Stop halts the watcher and waits for its loop to exit.
func (w *Watcher) Stop() error {
	if w.stopChan != nil {
		close(w.stopChan)
		<-w.done
	}

	err := w.watcher.Close()
	if err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}

	return nil
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	var timer *time.Timer

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}

			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.log.Warn("Config watcher error", map[string]string{"error": err.Error()})

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		w.log.Warn("Ignoring invalid config reload", map[string]string{"error": err.Error()})

		return
	}

	w.mu.Lock()
	w.current = cfg
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	w.log.Info("Config reloaded", map[string]string{"path": w.path})

	for _, handler := range handlers {
		handler(cfg)
	}
}
