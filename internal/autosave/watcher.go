package autosave

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lotas/ctxkeep/internal/applog"
)

// Watcher triggers a Saver whenever one of the watched files in a directory
// changes. Bursts of events are collapsed into one save.
type Watcher struct {
	fs       *fsnotify.Watcher
	saver    *Saver
	files    map[string]bool
	Debounce time.Duration

	// saved receives the outcome of every triggered save; used by tests.
	saved chan bool
}

// NewWatcher watches dir for changes to files (base names).
func NewWatcher(dir string, files []string, saver *Saver) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		fs:       fsw,
		saver:    saver,
		files:    make(map[string]bool, len(files)),
		Debounce: 2 * time.Second,
	}
	for _, f := range files {
		w.files[f] = true
	}
	applog.Info("autosave.watch", "dir", dir)
	return w, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Base(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			saved, err := w.saver.MaybeSave(ctx)
			if err != nil {
				applog.Error("autosave.save", err)
			}
			if w.saved != nil {
				w.saved <- saved
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			applog.Error("autosave.watch", err)
		}
	}
}
