// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler is called with the freshly loaded configuration after the
// config file changes on disk.
type ReloadHandler func(Config)

// Watcher re-reads a configuration file when it changes.
//
// # Description
//
// Editors commonly replace files by rename, so the watcher monitors the
// containing directory and filters events to the config path. Change
// bursts are debounced; a reload that fails to parse or validate is
// dropped and the previous configuration stays in effect.
//
// # Thread Safety
//
// The handler is called from a single goroutine.
type Watcher struct {
	path     string
	handler  ReloadHandler
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, handler ReloadHandler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     filepath.Clean(path),
		handler:  handler,
		debounce: 100 * time.Millisecond,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns immediately; reloads happen on a
// background goroutine until Stop is called or ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	reload := func() {
		timer = nil
		timerC = nil
		cfg, err := Load(w.path)
		if err != nil {
			// Keep running with the previous configuration.
			return
		}
		if w.handler != nil {
			w.handler(cfg)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
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
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			reload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
