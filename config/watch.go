package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pkmn-tools/shinyhunt-go/logger"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk. Editors often
// write via rename, so the parent directory is watched and events are
// filtered down to the config file itself.
type Watcher struct {
	path      string
	fs        *fsnotify.Watcher
	updates   chan *Config
	done      chan struct{}
	closeOnce sync.Once
}

// Watch starts watching the given config file. Reloads that fail to parse or
// validate are logged and dropped; only good configs reach Updates.
func Watch(path string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		fs:      fs,
		updates: make(chan *Config, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Updates delivers each successfully reloaded config.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Close stops the watcher. Safe to call repeatedly.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) run() {
	var debounce *time.Timer
	var debounceC <-chan time.Time

	target := filepath.Clean(w.path)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Collapse the burst of events one save produces.
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
			} else {
				debounce.Reset(reloadDebounce)
			}
			debounceC = debounce.C
		case <-debounceC:
			debounceC = nil
			w.reload()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		logger.Warn("Ignoring config reload", "path", w.path, "error", err)
		return
	}
	logger.Info("Config reloaded", "path", w.path)

	// Keep only the newest pending update.
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- cfg:
	case <-w.done:
	}
}
