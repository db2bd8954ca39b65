package cardkit

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// dirWatchToken watches a directory-backed mount for changes. The first
// event under the tree signals the token, runs onChange, and shuts the
// watcher down; the token is spent after that.
type dirWatchToken struct {
	*CallbackChangeToken
	watcher   *fsnotify.Watcher
	closeOnce sync.Once
}

// newDirWatchToken watches root and every indexed subdirectory beneath it.
func newDirWatchToken(root string, subdirs []string, onChange func()) (ChangeToken, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	t := &dirWatchToken{
		CallbackChangeToken: NewCallbackChangeToken(),
		watcher:             w,
	}

	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	for _, dir := range subdirs {
		// Best effort: a subdirectory deleted since indexing is not fatal.
		_ = w.Add(filepath.Join(root, filepath.FromSlash(dir)))
	}

	go func() {
		defer t.close()
		select {
		case _, ok := <-w.Events:
			if !ok {
				return
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
		if onChange != nil {
			onChange()
		}
		t.SignalChange()
	}()

	return t, nil
}

func (t *dirWatchToken) close() {
	t.closeOnce.Do(func() {
		t.watcher.Close()
	})
}
