// Package watcher watches corpus directories with fsnotify and triggers a
// debounced callback when relevant files change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// Watcher watches corpus roots and calls onChange once per burst of changes.
// onChange runs on the watcher goroutine, so calls never overlap; events that
// arrive while it runs schedule the next call.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	onChange   func(ctx context.Context)
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	done       chan struct{}
	loopDone   chan struct{}
	started    bool
	stopOnce   sync.Once
	logger     *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (file events, directories added).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets the quiet period after the last event before onChange runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over roots. extensions filter which files count
// as corpus changes (empty = all).
func NewWatcher(roots []string, extensions []string, recursive bool, onChange func(ctx context.Context), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:      roots,
		extensions: extensions,
		recursive:  recursive,
		onChange:   onChange,
		debounce:   defaultDebounce,
		done:       make(chan struct{}),
		loopDone:   make(chan struct{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher
	w.logger.Debug("watcher starting", zap.Strings("roots", w.roots), zap.Strings("extensions", w.extensions), zap.Bool("recursive", w.recursive))
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			return err
		}
	}
	w.started = true
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for a running onChange to return.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		started := w.started
		w.mu.Unlock()
		if started {
			<-w.loopDone
		}
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.loopDone)
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
				pending = true
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.logger.Info("corpus changed")
			if w.onChange != nil {
				w.onChange(ctx)
			}
		}
	}
}

// relevant reports whether ev changes the corpus. New directories are added
// to the watch list and count as a change.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	path := ev.Name
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.recursive {
				w.mu.Lock()
				if err := w.addTree(path); err != nil {
					w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
				w.mu.Unlock()
			}
			return true
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return matchExtension(path, w.extensions)
}

// addTree watches root and, when recursive, every directory below it.
// Must be called with w.mu held.
func (w *Watcher) addTree(root string) error {
	root = filepath.Clean(root)
	if !w.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.logger.Debug("watcher added directory", zap.String("path", path))
		return nil
	})
}

// Directories returns the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// matchExtension mirrors the corpus loader: files without an extension
// (news posts) always match.
func matchExtension(path string, extensions []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if len(extensions) == 0 || ext == "" {
		return true
	}
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
