package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher drives incremental Index updates from filesystem change
// notifications, debouncing rapid successive writes to the same path the
// way an editor's save-then-format flow produces them.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	idx      *Index
	root     string
	log      *zap.Logger
	debounce time.Duration
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a Watcher for idx's project root. Call Start to begin
// watching; the returned Watcher is otherwise idle.
func NewWatcher(idx *Index, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		idx:      idx,
		log:      log,
		debounce: 300 * time.Millisecond,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start recursively adds root's directories (skipping the index's configured
// skip-dirs) to the watch set and begins the debounced update loop in a
// background goroutine. Non-blocking.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.root = root
	w.mu.Unlock()

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := w.idx.skip[d.Name()]; skip && p != root {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.log.Warn("index watcher: failed to watch directory", zap.String("path", p), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watch loop and releases the underlying fsnotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.fsw.Close(); err != nil {
		w.log.Warn("index watcher: error closing watcher", zap.Error(err))
	}
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
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("index watcher: fsnotify error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	info, statErr := os.Stat(ev.Name)
	if statErr == nil && info.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			if _, skip := w.idx.skip[filepath.Base(ev.Name)]; !skip {
				if err := w.fsw.Add(ev.Name); err != nil {
					w.log.Warn("index watcher: failed to watch new directory", zap.String("path", ev.Name), zap.Error(err))
				}
			}
		}
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		w.pending[ev.Name] = time.Now()
		w.mu.Unlock()
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	due := make([]string, 0)
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range due {
		if err := w.idx.UpdatePath(path); err != nil {
			w.log.Warn("index watcher: update failed", zap.String("path", path), zap.Error(err))
		}
	}
}
