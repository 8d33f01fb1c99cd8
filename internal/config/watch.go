// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *log.Logger
	watcher  *fsnotify.Watcher
	updates  chan *Config
}

// Watch starts watching path and returns a channel of successfully reloaded
// configurations. Files that fail to parse or validate are logged and
// skipped. The channel is closed when ctx is cancelled.
//
// The parent directory is watched rather than the file itself, since most
// editors save by renaming a temp file over the original.
func Watch(ctx context.Context, path string, logger *log.Logger) (<-chan *Config, error) {
	w, err := NewWatcher(path, DefaultDebounce, logger)
	if err != nil {
		return nil, err
	}
	go w.run(ctx)
	return w.updates, nil
}

// NewWatcher creates a watcher without starting it.
func NewWatcher(path string, debounce time.Duration, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger,
		watcher:  fw,
		updates:  make(chan *Config, 1),
	}, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.updates)
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logf("CONFIG_WATCH_ERROR | path=%s error=%v", w.path, err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		w.logf("CONFIG_RELOAD_FAILED | path=%s error=%v", w.path, err)
		return
	}
	w.logf("CONFIG_RELOADED | path=%s", w.path)

	// Keep only the newest config if the consumer is behind.
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- cfg:
	case <-ctx.Done():
	}
}

func (w *Watcher) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}
