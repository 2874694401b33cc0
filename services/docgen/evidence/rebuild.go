// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// currentPointer is the file naming the active index directory. It is the
// only piece of mutable shared state between a reader and a rebuilder, and
// it only ever changes via an atomic rename.
const currentPointer = "CURRENT"

// Manager owns the evidence state directory and implements the two-phase
// rebuild protocol: serve-from-snapshot, then rebuild-and-swap.
//
// Layout under the state directory:
//
//	CURRENT          -> name of the active index directory
//	index-<id>/      -> BadgerDB files for one index generation
//
// A rebuild populates a brand-new index-<id> directory and then swaps the
// CURRENT pointer with an atomic rename. A run holding a Snapshot from the
// previous generation is never disturbed; the superseded directory is
// removed only after the in-memory store handle moves over.
//
// Thread Safety: Safe for concurrent use. At most one rebuild runs at a
// time; Store() may be called concurrently with a rebuild.
type Manager struct {
	stateDir string
	config   StoreConfig
	logger   *slog.Logger

	mu         sync.Mutex
	store      *Store
	rebuilding bool
}

// OpenManaged opens the evidence store under stateDir, creating the
// directory layout on first use.
//
// Outputs:
//
//	*Manager - The manager holding the active store.
//	error - Non-nil on unrecoverable IO.
func OpenManaged(stateDir string, config StoreConfig) (*Manager, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(stateDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating evidence state dir: %w", err)
	}

	active, err := readPointer(stateDir)
	if err != nil || active == "" {
		// Missing or unreadable pointer: start a fresh generation.
		active = newGenerationName()
		if err := writePointer(stateDir, active); err != nil {
			return nil, err
		}
	}

	config.Dir = filepath.Join(stateDir, active)
	config.Logger = logger
	store, err := OpenStore(config)
	if err != nil {
		return nil, err
	}
	return &Manager{
		stateDir: stateDir,
		config:   config,
		logger:   logger,
		store:    store,
	}, nil
}

// Store returns the active store. The handle stays valid across rebuilds;
// callers should take a Snapshot per run rather than caching the store.
func (m *Manager) Store() *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// Rebuild builds a fresh index generation and atomically swaps it in.
//
// Description:
//
//	Creates a new index directory, opens an empty store there, and calls
//	populate to fill it (the usual populate re-scans the repository and
//	re-ingests every file; hash gating makes this cheap to resume after
//	interruption). On success the CURRENT pointer is renamed over and the
//	active store handle replaced; the previous generation's directory is
//	deleted. On failure or cancellation the new directory is removed and
//	the active store is untouched.
//
// Inputs:
//
//	ctx - Context; cancellation is honored at chunk-processing
//	      granularity inside populate's Ingest calls.
//	populate - Callback that fills the fresh store.
//
// Outputs:
//
//	error - Non-nil if population or the swap failed. The previous
//	        index remains active in that case.
//
// Thread Safety: Only one rebuild may run at a time; a second concurrent
// call returns an error immediately.
func (m *Manager) Rebuild(ctx context.Context, populate func(context.Context, *Store) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	m.mu.Lock()
	if m.rebuilding {
		m.mu.Unlock()
		return fmt.Errorf("evidence: rebuild already in progress")
	}
	m.rebuilding = true
	previous := m.config.Dir
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.rebuilding = false
		m.mu.Unlock()
	}()

	generation := newGenerationName()
	nextDir := filepath.Join(m.stateDir, generation)

	nextConfig := m.config
	nextConfig.Dir = nextDir
	next, err := OpenStore(nextConfig)
	if err != nil {
		recordRebuild(ctx, "open_failed")
		return fmt.Errorf("opening next index generation: %w", err)
	}

	if err := populate(ctx, next); err != nil {
		next.Close()
		os.RemoveAll(nextDir)
		recordRebuild(ctx, "populate_failed")
		return fmt.Errorf("populating next index generation: %w", err)
	}
	if err := next.Close(); err != nil {
		os.RemoveAll(nextDir)
		recordRebuild(ctx, "close_failed")
		return fmt.Errorf("closing next index generation: %w", err)
	}

	// Swap the pointer first (atomic rename), then move the in-memory
	// handle over. A crash between the two leaves CURRENT pointing at
	// the fully-written new generation, which the next open picks up.
	if err := writePointer(m.stateDir, generation); err != nil {
		os.RemoveAll(nextDir)
		recordRebuild(ctx, "swap_failed")
		return err
	}

	reopened, err := OpenStore(nextConfig)
	if err != nil {
		recordRebuild(ctx, "reopen_failed")
		return fmt.Errorf("reopening swapped index: %w", err)
	}

	m.mu.Lock()
	old := m.store
	m.store = reopened
	m.config.Dir = nextDir
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if previous != "" && previous != nextDir {
		if err := os.RemoveAll(previous); err != nil {
			m.logger.Warn("could not remove superseded index", "dir", previous, "error", err)
		}
	}
	recordRebuild(ctx, "ok")
	m.logger.Info("evidence index rebuilt", "generation", generation)
	return nil
}

// Close closes the active store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}

func newGenerationName() string {
	return "index-" + uuid.NewString()
}

func readPointer(stateDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, currentPointer))
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(data))
	// Refuse anything that escapes the state directory.
	if name == "" || strings.ContainsAny(name, "/\\") || name == ".." {
		return "", fmt.Errorf("evidence: malformed CURRENT pointer %q", name)
	}
	return name, nil
}

// writePointer atomically replaces the CURRENT pointer file.
func writePointer(stateDir, generation string) error {
	tmp := filepath.Join(stateDir, currentPointer+".tmp")
	if err := os.WriteFile(tmp, []byte(generation+"\n"), 0o640); err != nil {
		return fmt.Errorf("writing index pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(stateDir, currentPointer)); err != nil {
		return fmt.Errorf("swapping index pointer: %w", err)
	}
	return nil
}
