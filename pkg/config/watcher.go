package config

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ReloadWatcher watches configDir for writes to vigil.yaml or tools.yaml
// and invokes onChange so the caller can decide whether to re-run
// Initialize. Vigil does not hot-swap a running Config in place (every
// registry it builds is handed out by value or pointer to long-lived
// agent handlers) so onChange is advisory only today; the watcher exists
// so an operator editing config on disk finds out without restarting
// blind.
type ReloadWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchConfigDir starts watching configDir and calls onChange with the
// path that changed whenever vigil.yaml or tools.yaml is written.
func WatchConfigDir(configDir string, onChange func(path string)) (*ReloadWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(configDir); err != nil {
		w.Close()
		return nil, err
	}

	rw := &ReloadWatcher{watcher: w, done: make(chan struct{})}
	go rw.loop(onChange)
	return rw, nil
}

func (rw *ReloadWatcher) loop(onChange func(path string)) {
	defer close(rw.done)
	for {
		select {
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if base == "vigil.yaml" || base == "tools.yaml" {
				slog.Info("config file changed on disk", "path", event.Name)
				onChange(event.Name)
			}
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (rw *ReloadWatcher) Stop() error {
	return rw.watcher.Close()
}
