// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scanner

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a repository and reports batches of changed paths.
//
// Events are debounced: editors and builds produce bursts of writes, and
// the consumer (a background reindex) only cares that a path changed, not
// how many times. Excluded paths (docgen's own state, VCS internals) are
// filtered with the same rules the scanner uses, which is half of the
// feedback-loop protection: a run that only writes the README and report
// never wakes the watcher's consumer.
type Watcher struct {
	scanner  *Scanner
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher sharing the scanner's exclude rules.
func NewWatcher(s *Scanner, logger *slog.Logger, debounce time.Duration) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{scanner: s, logger: logger, debounce: debounce}
}

// Watch blocks until ctx is done, invoking onChange with each debounced
// batch of changed repo-relative paths.
//
// Inputs:
//
//	ctx - Cancels the watch.
//	root - Repository root to observe (recursively).
//	onChange - Called from the watch goroutine with a non-empty set.
//
// Outputs:
//
//	error - Non-nil if the underlying watcher cannot be established.
//	        ctx cancellation returns nil.
func (w *Watcher) Watch(ctx context.Context, root string, onChange func(map[string]struct{})) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving watch root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fs watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, absRoot); err != nil {
		return err
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(absRoot, event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if w.scanner.excluded(rel, false) {
				continue
			}
			// New directories must be added to the watch set.
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.logger.Warn("could not watch new directory", "dir", rel, "error", err)
					}
					continue
				}
			}
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fs watch error", "error", watchErr)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := pending
			pending = make(map[string]struct{})
			w.logger.Debug("repository changed", "paths", len(batch))
			onChange(batch)
		}
	}
}

// addRecursive registers root and all non-excluded subdirectories.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && w.scanner.excluded(filepath.ToSlash(rel), true) {
			return fs.SkipDir
		}
		if addErr := fsw.Add(path); addErr != nil {
			w.logger.Warn("could not watch directory", "dir", path, "error", addErr)
		}
		return nil
	})
}
