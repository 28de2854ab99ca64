package dev

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ChangeKind classifies a detected file change by what the browser must do
// about it.
type ChangeKind int

const (
	// ChangeCode requires a full reload.
	ChangeCode ChangeKind = iota
	// ChangeStyle can be applied by refreshing stylesheets in place.
	ChangeStyle
	// ChangeAsset covers everything else under the watched roots.
	ChangeAsset
)

// Change is one detected file change.
type Change struct {
	Path string
	Kind ChangeKind
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the directory roots to watch.
	Paths []string

	// Ignore patterns to skip. Bare names match any path segment, glob
	// patterns match the file name.
	Ignore []string

	// Interval is the polling interval.
	Interval time.Duration
}

// DefaultIgnore contains the patterns skipped by default.
var DefaultIgnore = []string{
	"*_test.go",
	".git",
	"node_modules",
	"out",
	"tmp",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls the configured roots for modified, added, and removed files.
// Polling keeps the implementation portable; the interval is coarse enough
// not to matter for a development loop.
type Watcher struct {
	config WatcherConfig

	mu       sync.Mutex
	onChange func(Change)
	running  bool
	stopCh   chan struct{}
	modTimes map[string]time.Time
	primed   bool
}

// NewWatcher creates a watcher for the given configuration.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 200 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	return &Watcher{
		config:   config,
		modTimes: make(map[string]time.Time),
	}
}

// OnChange sets the callback invoked for each change.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start blocks, polling until the context is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	w.scan(false)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.scan(true)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning reports whether the watcher loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// scan walks the roots, diffing modification times against the previous
// pass. The first pass only primes the table. One change per kind is
// reported per pass, which is all the reload protocol can use anyway.
func (w *Watcher) scan(report bool) {
	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()

	seen := make(map[string]struct{})
	var changes []Change

	for _, root := range w.config.Paths {
		filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if w.ignored(p) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if info.IsDir() {
				return nil
			}

			seen[p] = struct{}{}
			w.mu.Lock()
			prev, known := w.modTimes[p]
			w.modTimes[p] = info.ModTime()
			w.mu.Unlock()

			if !known || info.ModTime().After(prev) {
				changes = append(changes, Change{Path: p, Kind: classify(p)})
			}
			return nil
		})
	}

	w.mu.Lock()
	for p := range w.modTimes {
		if _, ok := seen[p]; !ok {
			delete(w.modTimes, p)
			changes = append(changes, Change{Path: p, Kind: classify(p)})
		}
	}
	primed := w.primed
	w.primed = true
	w.mu.Unlock()

	if !report || !primed || callback == nil {
		return
	}

	reported := make(map[ChangeKind]bool)
	for _, c := range changes {
		if !reported[c.Kind] {
			reported[c.Kind] = true
			callback(c)
		}
	}
}

// ignored reports whether a path matches any ignore pattern.
func (w *Watcher) ignored(fullPath string) bool {
	name := filepath.Base(fullPath)
	for _, pattern := range w.config.Ignore {
		if pattern == "" {
			continue
		}
		if strings.ContainsAny(pattern, "*?[") {
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}
		for _, segment := range strings.Split(filepath.ToSlash(fullPath), "/") {
			if segment == pattern {
				return true
			}
		}
	}
	return false
}

// classify maps a file extension to the reload behavior it needs.
func classify(path string) ChangeKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return ChangeCode
	case ".css", ".scss", ".sass", ".less":
		return ChangeStyle
	default:
		return ChangeAsset
	}
}
