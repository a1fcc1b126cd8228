package config

import (
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher re-runs loader on path after the file settles and passes the
// result to every subscriber. It watches the parent directory so that
// editors replacing the file by rename are seen too.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	onError  func(error)
	logger   *slog.Logger

	mu   sync.Mutex
	subs []reloadSub[T]
	seq  int

	fsw      *fsnotify.Watcher
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

type reloadSub[T any] struct {
	id int
	fn func(T)
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets the quiet period after the last change (default 500ms).
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) { w.debounce = d }
}

// WithErrorHandler is called when a reload fails. Subscribers are not
// notified and keep the last good value.
func WithErrorHandler[T any](fn func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) { w.onError = fn }
}

// NewConfigWatcher creates a watcher for path. Nothing is watched until Start.
func NewConfigWatcher[T any](path string, loader func(string) (T, error), logger *slog.Logger, opts ...WatcherOption[T]) *Watcher[T] {
	w := &Watcher[T]{
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		loader:   loader,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload subscribes fn and returns a func that unsubscribes it.
func (w *Watcher[T]) OnReload(fn func(T)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	id := w.seq
	w.subs = append(w.subs, reloadSub[T]{id: id, fn: fn})
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.subs = slices.DeleteFunc(w.subs, func(s reloadSub[T]) bool { return s.id == id })
	}
}

// Start watches the file's directory in a background goroutine.
func (w *Watcher[T]) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.logger.Info("Watching profile for changes", "path", w.path, "debounce", w.debounce)
	go w.loop()
	return nil
}

// Stop ends watching and waits for the loop to exit. Calling it without
// Start is fine.
func (w *Watcher[T]) Stop() error {
	w.quitOnce.Do(func() { close(w.quit) })
	if w.fsw == nil {
		return nil
	}
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher[T]) loop() {
	defer close(w.done)

	settle := time.NewTimer(w.debounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-w.quit:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("Profile changed", "op", ev.Op.String())
			settle.Reset(w.debounce)
		case <-settle.C:
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watch error", "error", err)
		}
	}
}

func (w *Watcher[T]) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}

func (w *Watcher[T]) reload() {
	value, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Profile reload failed, keeping previous settings", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	subs := slices.Clone(w.subs)
	w.mu.Unlock()

	w.logger.Info("Profile reloaded", "path", w.path, "subscribers", len(subs))
	for _, s := range subs {
		s.fn(value)
	}
}
