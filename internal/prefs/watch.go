package prefs

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the store when the preference file changes on disk,
// so edits made outside the client are picked up without a restart.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching the store's backing file.
func (s *Store) Watch() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors replace files by rename, which
	// drops a watch on the file itself.
	dir := filepath.Dir(s.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	target := filepath.Clean(s.path)

	go func() {
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					s.reload()
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
