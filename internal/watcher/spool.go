package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports feed and list files written to a spool directory.
// Subdirectories are not watched.
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	errors    chan error
	stopCh    chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
}

// New creates a watcher. Call Start to begin watching.
func New(opts Options, logger *slog.Logger) (*Watcher, error) {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fs:        fsw,
		debouncer: NewDebouncer(opts.Debounce, opts.BufferSize, logger),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		logger:    logger,
	}, nil
}

// Start watches dir until ctx is done or Stop is called. Files already in
// dir are reported in the first batch. dir is created if missing.
func (w *Watcher) Start(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve spool dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}
	if err := w.fs.Add(abs); err != nil {
		return fmt.Errorf("watch spool dir: %w", err)
	}
	w.logger.Info("spool_watch_started", slog.String("dir", abs))

	if err := w.scanExisting(abs); err != nil {
		w.emitError(err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) scanExisting(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read spool dir: %w", err)
	}
	now := time.Now()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if kind := Classify(path); kind != KindUnknown {
			w.debouncer.Add(Event{Path: path, Kind: kind, Timestamp: now})
		}
	}
	return nil
}

func (w *Watcher) handle(ev fsnotify.Event) {
	kind := Classify(ev.Name)
	if kind == KindUnknown {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.debouncer.Remove(ev.Name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return
		}
		w.debouncer.Add(Event{Path: ev.Name, Kind: kind, Timestamp: time.Now()})
	}
}

func (w *Watcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("spool_watch_error", slog.String("error", err.Error()))
	}
}

// Events returns debounced batches. The channel is closed by Stop.
func (w *Watcher) Events() <-chan []Event {
	return w.debouncer.Output()
}

// Errors returns non-fatal watch errors. The channel is never closed.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops watching and closes the Events channel.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.fs.Close()
		w.debouncer.Stop()
	})
	return err
}
