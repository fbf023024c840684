package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/docchat/core"
)

// DefaultDebounce is how long a data source must stay quiet before it is ingested.
const DefaultDebounce = 2 * time.Second

// TriggerFunc ingests one data source. ctx is cancelled when the watcher stops.
type TriggerFunc func(ctx context.Context, source string)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher) error

// WithDebounce sets the quiet period before a changed data source is ingested.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) error {
		if d <= 0 {
			return fmt.Errorf("debounce must be positive, got %v", d)
		}
		w.debounce = d
		return nil
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) error {
		w.logger = logger
		return nil
	}
}

// Watcher follows a data directory and triggers ingestion of the data
// source whose files changed. Each data source is a direct subdirectory.
type Watcher struct {
	dataDir  string
	debounce time.Duration
	trigger  TriggerFunc
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending sync.WaitGroup
}

// NewWatcher watches dataDir and every non-hidden directory below it.
func NewWatcher(dataDir string, trigger TriggerFunc, opts ...WatcherOption) (*Watcher, error) {
	if trigger == nil {
		return nil, errors.New("trigger is required")
	}
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, &core.ConfigurationError{Path: dataDir, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &core.ConfigurationError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, &core.ConfigurationError{Path: abs, Err: errors.New("not a directory")}
	}

	w := &Watcher{
		dataDir:  abs,
		debounce: DefaultDebounce,
		trigger:  trigger,
		timers:   map[string]*time.Timer{},
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("component", "watcher")

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.addTree(abs); err != nil {
		w.fsw.Close()
		return nil, err
	}
	return w, nil
}

// Watch creates a Watcher whose triggers run through the scheduler, so
// watched runs never overlap scheduled ones.
func (s *Scheduler) Watch(dataDir string, opts ...WatcherOption) (*Watcher, error) {
	opts = append([]WatcherOption{WithWatcherLogger(s.logger)}, opts...)
	return NewWatcher(dataDir, s.triggerSource, opts...)
}

// Run processes file system events until ctx is done, then waits for
// triggered runs to return and closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching data directory", "dir", w.dataDir, "debounce", w.debounce)
	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if source, ok := w.handleEvent(event); ok {
				w.schedule(ctx, source)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	for name, t := range w.timers {
		if t.Stop() {
			w.pending.Done()
		}
		delete(w.timers, name)
	}
	w.mu.Unlock()

	w.pending.Wait()
	w.fsw.Close()
}

// schedule (re)starts the debounce timer of source.
func (w *Watcher) schedule(ctx context.Context, source string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[source]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}

	w.pending.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.pending.Done()
		w.mu.Lock()
		if w.timers[source] == t {
			delete(w.timers, source)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.logger.Debug("data source changed", "source", source)
		w.trigger(ctx, source)
	})
	w.timers[source] = t
}

// handleEvent maps an event to the data source it affects. New
// directories are watched as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.dataDir, event.Name)
	if err != nil {
		return "", false
	}

	isDir := false
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			isDir = true
		}
	}

	source, ok := classify(rel, event.Op, isDir)
	if ok && isDir {
		if err := w.addTree(event.Name); err != nil {
			w.logger.Warn("cannot watch new directory", "dir", event.Name, "err", err)
		}
	}
	return source, ok
}

// classify decides whether a change at rel, relative to the data
// directory, should trigger ingestion of a data source.
// Files directly in the data directory belong to no data source. A new
// directory triggers its data source because files may land in it before
// it is watched.
func classify(rel string, op fsnotify.Op, isDir bool) (string, bool) {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	parts := strings.Split(rel, "/")
	for _, p := range parts {
		if strings.HasPrefix(p, ".") {
			return "", false
		}
	}
	if core.ValidateSourceName(parts[0]) != nil {
		return "", false
	}

	switch {
	case isDir:
		return parts[0], op.Has(fsnotify.Create)
	case len(parts) < 2:
		return "", false
	case op.Has(fsnotify.Create), op.Has(fsnotify.Write):
		return parts[0], true
	default:
		return "", false
	}
}

func (w *Watcher) addTree(root string) error {
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
		return w.fsw.Add(path)
	})
}
