package seed

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads an override seed file into a Store whenever it changes on
// disk. Rapid saves are coalesced.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *Store
	path        string
	log         *zap.Logger
	onReload    func(Seed, error)
	pendingAt   time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	closeOnce   sync.Once
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithLogger routes watcher diagnostics to log.
func WithLogger(log *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithDebounce overrides how long the file must stay quiet before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDur = d
		}
	}
}

// OnReload registers fn to run after every reload attempt. A failed reload
// leaves the store untouched and passes the error.
func OnReload(fn func(Seed, error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher prepares a watcher for path. Call Start to begin watching.
func NewWatcher(path string, store *Store, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		watcher:     fw,
		store:       store,
		path:        abs,
		log:         zap.NewNop(),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches the directory holding the seed file. It does not block.
// Editors replace files on save, so the parent directory is watched rather
// than the file itself. A watcher that fails to start is closed and cannot
// be restarted.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.close()
		return fmt.Errorf("seed: watch %s: %w", dir, err)
	}
	w.log.Info("seed watcher started", zap.String("path", w.path))
	go w.run(ctx)
	return nil
}

// Stop ends the watch loop, waits for it to exit and releases the
// underlying fsnotify watcher. Stop on a watcher that never started only
// releases it.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.close()
	w.log.Info("seed watcher stopped")
}

func (w *Watcher) close() {
	w.closeOnce.Do(func() {
		if err := w.watcher.Close(); err != nil {
			w.log.Warn("seed watcher close", zap.Error(err))
		}
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
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
			w.log.Warn("seed watcher error", zap.Error(err))
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.pendingAt = time.Now()
	w.mu.Unlock()
	w.log.Debug("seed file changed", zap.String("op", event.Op.String()))
}

func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	due := !w.pendingAt.IsZero() && now.Sub(w.pendingAt) >= w.debounceDur
	if due {
		w.pendingAt = time.Time{}
	}
	w.mu.Unlock()
	if due {
		w.reload()
	}
}

func (w *Watcher) reload() {
	s, err := Load(w.path)
	if err == nil {
		err = w.store.Replace(s)
	}
	if err != nil {
		w.log.Warn("seed reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.log.Info("seed reloaded", zap.String("path", w.path), zap.Uint64("version", w.store.Version()))
	}
	if w.onReload != nil {
		w.onReload(s, err)
	}
}
