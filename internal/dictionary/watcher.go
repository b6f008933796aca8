package dictionary

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher triggers a Store reload when the dictionary file changes on disk.
// Editors typically produce several write events per save, so events are
// debounced before the reload fires.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
}

// NewWatcher creates a Watcher for the dictionary file at path.
func NewWatcher(store *Store, path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: editors replace files by rename,
	// which drops a watch on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		store:    store,
		path:     path,
		debounce: 500 * time.Millisecond,
		fsw:      fsw,
		logger:   slog.Default().With("component", "dictionary-watcher", "path", path),
	}, nil
}

// Run blocks until ctx is cancelled, reloading the store after each
// debounced change to the watched file.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			reloadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			summary, err := w.store.Reload(reloadCtx)
			cancel()
			if err != nil {
				w.logger.Error("hot reload failed, previous generation stays active", "error", err)
				continue
			}
			w.logger.Info("hot reload complete", "version", summary.Version, "loaded", summary.Loaded, "rejected", len(summary.Rejected))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}
