package retrieval

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/ragdesk/logging"
)

const defaultDebounce = 400 * time.Millisecond

// WatcherOptions configure a Watcher.
type WatcherOptions struct {
	Debounce  time.Duration
	Persister Persister
	Logger    logging.Logger
	// OnPublish is called after a rebuilt store has been published.
	OnPublish func(s *Store)
}

// Watcher rebuilds the index whenever the corpus file changes, persists the
// result and publishes it to a Holder. A failed rebuild leaves the served
// store untouched.
type Watcher struct {
	path    string
	builder *Builder
	holder  *Holder
	opts    WatcherOptions

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	done    chan struct{}
	stop    sync.Once
}

// NewWatcher creates a watcher for the corpus file at path.
func NewWatcher(path string, builder *Builder, holder *Holder, optFns ...func(o *WatcherOptions)) *Watcher {
	opts := WatcherOptions{
		Debounce: defaultDebounce,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Watcher{
		path:    filepath.Clean(path),
		builder: builder,
		holder:  holder,
		opts:    opts,
		done:    make(chan struct{}),
	}
}

// Start watches the directory containing the corpus file until ctx is
// cancelled or Stop is called. Editors often replace files by rename, so the
// parent directory is watched rather than the file itself.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return err
	}
	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	w.opts.Logger.Debug("retrieval.watch.start", "path", w.path)
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule(ctx)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Warn("retrieval.watch.error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		_ = w.Rebuild(ctx)
	})
}

// Rebuild builds a new store from the corpus, persists it and publishes it.
func (w *Watcher) Rebuild(ctx context.Context) error {
	store, err := w.builder.BuildFile(ctx, w.path)
	if err != nil {
		w.opts.Logger.Error("retrieval.watch.rebuild_failed", "path", w.path, "error", err)
		return err
	}
	if w.opts.Persister != nil {
		if err := w.opts.Persister.Save(ctx, store); err != nil {
			w.opts.Logger.Warn("retrieval.watch.persist_failed", "build_id", store.BuildID(), "error", err)
		}
	}
	w.holder.Publish(store)
	w.opts.Logger.Info("retrieval.watch.published", "build_id", store.BuildID(), "chunks", store.Len())
	if w.opts.OnPublish != nil {
		w.opts.OnPublish(store)
	}
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.timer != nil {
			w.timer.Stop()
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
}
