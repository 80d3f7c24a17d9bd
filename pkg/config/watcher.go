// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when its files change and notifies listeners.
type Watcher struct {
	mu        sync.RWMutex
	opts      Options
	files     map[string]bool
	debounce  time.Duration
	config    *Config
	listeners []func(*Config)
	logger    *slog.Logger

	fs     *fsnotify.Watcher
	cancel context.CancelFunc
	doneCh chan struct{}
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithDebounce coalesces bursts of file events (editors often write twice).
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher loads opts once and prepares to watch opts.Path and its profile file.
func NewWatcher(opts Options, wopts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		opts:     opts,
		files:    make(map[string]bool),
		debounce: 100 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range wopts {
		opt(w)
	}
	for _, path := range []string{opts.Path, ProfilePath(opts.Path, opts.Profile)} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		w.files[abs] = true
	}

	cfg, err := LoadWith(opts)
	if err != nil {
		return nil, err
	}
	w.config = cfg
	return w, nil
}

// OnChange registers a callback to be called when config changes.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start begins watching. Directories are watched so atomic renames are seen.
func (w *Watcher) Start(ctx context.Context) error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for file := range w.files {
		dirs[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		if err := fs.Add(dir); err != nil {
			_ = fs.Close()
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.fs = fs
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	done := w.doneCh
	w.mu.Unlock()

	go w.watch(ctx, fs, done)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.doneCh
	w.cancel, w.doneCh = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) watch(ctx context.Context, fs *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer fs.Close()

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod || !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			w.reload()
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config.watch.error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	w.logger.Info("config.reload.start", slog.String("path", w.opts.Path))

	cfg, err := LoadWith(w.opts)
	if err != nil {
		w.logger.Error("config.reload.error", slog.String("error", err.Error()))
		return
	}

	w.mu.Lock()
	w.config = cfg
	listeners := make([]func(*Config), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	w.logger.Info("config.reload.complete")

	for _, fn := range listeners {
		fn(cfg)
	}
}
