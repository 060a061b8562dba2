package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is how often a [Watcher] stats the config file.
const DefaultWatchInterval = 5 * time.Second

// ReloadFunc receives a newly loaded config together with its [Diff]
// against the config it replaces. It is only called when the diff has a
// hot-reloadable change or lists sections that need a restart.
type ReloadFunc func(next *Config, d ConfigDiff)

// Watcher polls a config file and hands every meaningful edit to a
// [ReloadFunc]. Edits that fail to parse or validate are logged and the
// active config stays in place.
type Watcher struct {
	path     string
	interval time.Duration
	override func(*Config)
	onReload ReloadFunc

	mu      sync.Mutex
	current *Config
	modTime time.Time
	size    int64

	cancel context.CancelFunc
	done   chan struct{}
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Non-positive values keep
// [DefaultWatchInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOverride applies fn to every loaded config before it is diffed, so
// command-line overrides such as the domain flag survive a reload.
func WithOverride(fn func(*Config)) WatcherOption {
	return func(w *Watcher) { w.override = fn }
}

// NewWatcher loads path and polls it until ctx ends or Stop is called.
// onReload may be nil.
func NewWatcher(ctx context.Context, path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultWatchInterval,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch: %w", err)
	}
	cfg, err := w.load()
	if err != nil {
		return nil, err
	}
	w.current, w.modTime, w.size = cfg, info.ModTime(), info.Size()

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	return w, nil
}

// Current returns the active config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling and waits for an in-flight reload to finish. It is safe
// to call more than once.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the file when its size or modification time moved.
func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: stat failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.modTime) && info.Size() == w.size
	w.mu.Unlock()
	if unchanged {
		return
	}

	next, err := w.load()
	if err != nil {
		slog.Warn("config watcher: keeping active config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	d := Diff(w.current, next)
	w.current, w.modTime, w.size = next, info.ModTime(), info.Size()
	w.mu.Unlock()

	if !d.Changed() && len(d.RestartRequired) == 0 {
		slog.Debug("config watcher: edit has no effect", "path", w.path)
		return
	}
	slog.Info("config watcher: configuration reloaded", "path", w.path,
		"threshold_changed", d.ThresholdChanged,
		"completion_changed", d.CompletionChanged,
		"restart_required", d.RestartRequired,
	)
	if w.onReload != nil {
		w.onReload(next, d)
	}
}

func (w *Watcher) load() (*Config, error) {
	cfg, err := Load(w.path)
	if err != nil {
		return nil, err
	}
	if w.override != nil {
		w.override(cfg)
	}
	return cfg, nil
}
