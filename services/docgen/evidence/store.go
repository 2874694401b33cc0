// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence implements the persistent evidence store for docgen.
//
// The store owns two kinds of material: structured Facts emitted by
// analyzers and text Chunks cut from indexable files. Both are persisted
// in an embedded BadgerDB so incremental runs can skip re-indexing files
// whose content hash has not changed.
//
// Persistence is versioned: a schema key is checked on open, and a
// mismatch (or an unreadable database) is treated as an empty store with
// a full rebuild scheduled, never as a fatal error. Readers work from
// immutable Snapshots, so a background rebuild can proceed while a run
// is in flight (see Manager in rebuild.go for the atomic swap protocol).
package evidence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

// SchemaVersion identifies the persisted layout. Bump on any change to key
// structure or record encoding; old stores are discarded and rebuilt.
const SchemaVersion = 2

// Key prefixes within BadgerDB.
const (
	keySchema      = "meta:schema"
	keySeq         = "meta:seq"
	prefixPathHash = "path:"
	prefixChunk    = "chunk:"
	prefixFact     = "fact:"
)

// StoreConfig configures a Store instance.
type StoreConfig struct {
	// Dir is the directory holding the BadgerDB files.
	// Ignored when InMemory is true.
	Dir string

	// InMemory runs the store without disk persistence. For tests.
	InMemory bool

	// Chunker controls text splitting. Zero value uses defaults.
	Chunker ChunkerConfig

	// Logger receives store diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Store persists Facts and Chunks with content-hash gated invalidation.
//
// Thread Safety: Safe for concurrent use. Ingest and Snapshot may run
// concurrently; snapshots are copies and never observe partial writes.
type Store struct {
	mu      sync.RWMutex
	db      *badger.DB
	chunker *Chunker
	logger  *slog.Logger
	closed  bool

	// rebuildNeeded is set when open found a schema mismatch or
	// corrupted state and discarded it.
	rebuildNeeded bool
}

// OpenStore opens (or creates) an evidence store.
//
// Description:
//
//	Opens the BadgerDB at config.Dir and verifies the schema version.
//	Unreadable state or a version mismatch is not fatal: the directory
//	is discarded, an empty store is created in its place, and
//	RebuildNeeded reports true so the caller can schedule a full
//	reindex.
//
// Inputs:
//
//	config - Store configuration. Dir is required unless InMemory.
//
// Outputs:
//
//	*Store - The opened store.
//	error - Non-nil only for unrecoverable IO (e.g. the directory
//	        cannot be created at all).
func OpenStore(config StoreConfig) (*Store, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, rebuild, err := openDB(config, logger)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:            db,
		chunker:       NewChunker(config.Chunker),
		logger:        logger,
		rebuildNeeded: rebuild,
	}
	if err := s.checkSchema(); err != nil {
		// Schema mismatch: drop everything and start clean.
		logger.Warn("evidence store schema mismatch, discarding", "error", err)
		if err := s.db.DropAll(); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("dropping stale evidence store: %w", err)
		}
		s.rebuildNeeded = true
		if err := s.writeSchema(); err != nil {
			s.db.Close()
			return nil, err
		}
	}
	return s, nil
}

// openDB opens badger, falling back to a wiped directory on corruption.
func openDB(config StoreConfig, logger *slog.Logger) (*badger.DB, bool, error) {
	opts := badger.DefaultOptions(config.Dir).
		WithInMemory(config.InMemory).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err == nil {
		return db, false, nil
	}
	if config.InMemory {
		return nil, false, fmt.Errorf("opening in-memory evidence store: %w", err)
	}

	// Corrupted or unreadable on-disk state. Treat as empty and rebuild.
	logger.Warn("evidence store unreadable, recreating", "dir", config.Dir, "error", err)
	if err := os.RemoveAll(config.Dir); err != nil {
		return nil, false, fmt.Errorf("removing corrupted evidence store: %w", err)
	}
	db, err = badger.Open(opts)
	if err != nil {
		return nil, false, fmt.Errorf("recreating evidence store: %w", err)
	}
	return db, true, nil
}

// RebuildNeeded reports whether open discarded stale or corrupted state.
func (s *Store) RebuildNeeded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rebuildNeeded
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ingest indexes one source file.
//
// Description:
//
//	Splits text into chunks, computes a term-frequency vector per chunk,
//	and persists them tagged for the given sections. If the stored hash
//	for sourcePath equals hash the call is a no-op (recompute skipped);
//	otherwise any previous chunks for the path are replaced.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	sourcePath - Repo-relative path of the file.
//	text - File content to chunk.
//	hash - Content hash of the file.
//	tags - Section tags the chunks may ground.
//
// Outputs:
//
//	bool - True if the path was (re)indexed, false if skipped unchanged.
//	error - Non-nil on IO failure or cancellation.
func (s *Store) Ingest(ctx context.Context, sourcePath, text, hash string, tags []string) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}

	unchanged := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixPathHash + sourcePath))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			unchanged = string(val) == hash
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("reading stored hash for %s: %w", sourcePath, err)
	}
	if unchanged {
		recordIngest(ctx, "skipped")
		return false, nil
	}

	texts := s.chunker.Split(text)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, chunkPrefix(sourcePath)); err != nil {
			return err
		}
		for i, chunkText := range texts {
			seq, err := nextSeq(txn)
			if err != nil {
				return err
			}
			chunk := &Chunk{
				ID:          fmt.Sprintf("%s#%d", sourcePath, i),
				SourcePath:  sourcePath,
				SectionTags: tags,
				Text:        chunkText,
				TokenVector: TermVector(chunkText),
				ContentHash: hash,
				IngestSeq:   seq,
			}
			encoded, err := json.Marshal(chunk)
			if err != nil {
				return fmt.Errorf("encoding chunk %s: %w", chunk.ID, err)
			}
			if err := txn.Set([]byte(prefixChunk+chunk.ID), encoded); err != nil {
				return err
			}
		}
		return txn.Set([]byte(prefixPathHash+sourcePath), []byte(hash))
	})
	if err != nil {
		return false, fmt.Errorf("ingesting %s: %w", sourcePath, err)
	}
	recordIngest(ctx, "indexed")
	s.logger.Debug("ingested path", "path", sourcePath, "chunks", len(texts))
	return true, nil
}

// Invalidate removes all chunks for a source path that no longer exists.
func (s *Store) Invalidate(ctx context.Context, sourcePath string) error {
	if ctx == nil {
		return ErrNilContext
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, chunkPrefix(sourcePath)); err != nil {
			return err
		}
		err := txn.Delete([]byte(prefixPathHash + sourcePath))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating %s: %w", sourcePath, err)
	}
	recordIngest(ctx, "invalidated")
	return nil
}

// ReplaceFacts atomically replaces the persisted fact set.
//
// Facts are immutable once ingested, so refresh is wholesale: analyzers
// re-emit the full set each scan and the store swaps it in one transaction.
func (s *Store) ReplaceFacts(ctx context.Context, facts []Fact) error {
	if ctx == nil {
		return ErrNilContext
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, []byte(prefixFact)); err != nil {
			return err
		}
		for _, fact := range facts {
			encoded, err := json.Marshal(fact)
			if err != nil {
				return fmt.Errorf("encoding fact %s: %w", fact.Key(), err)
			}
			if err := txn.Set([]byte(prefixFact+fact.Key()), encoded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing facts: %w", err)
	}
	return nil
}

// Paths returns every currently indexed source path, sorted.
//
// The orchestrator diffs this against the fresh manifest to find paths
// that disappeared and must be invalidated.
func (s *Store) Paths() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixPathHash)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			paths = append(paths, string(key[len(prefixPathHash):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing indexed paths: %w", err)
	}
	return paths, nil
}

// Snapshot returns a read-only view of all Facts plus the Chunks matching
// any of the given section tags. An empty tag list matches every chunk.
//
// The returned Snapshot is a deep-enough copy: nothing in it aliases
// store-internal state, so later ingests never disturb an open snapshot.
func (s *Store) Snapshot(sectionTags ...string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	snap := &Snapshot{SchemaVersion: SchemaVersion}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixFact)})
		for it.Rewind(); it.Valid(); it.Next() {
			var fact Fact
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &fact)
			})
			if err != nil {
				it.Close()
				return fmt.Errorf("decoding fact %s: %w", it.Item().Key(), err)
			}
			snap.Facts = append(snap.Facts, fact)
		}
		it.Close()

		ci := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixChunk)})
		defer ci.Close()
		for ci.Rewind(); ci.Valid(); ci.Next() {
			var chunk Chunk
			err := ci.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &chunk)
			})
			if err != nil {
				return fmt.Errorf("decoding chunk %s: %w", ci.Item().Key(), err)
			}
			if len(sectionTags) == 0 || chunk.HasTag(sectionTags) {
				snap.Chunks = append(snap.Chunks, &chunk)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building snapshot: %w", err)
	}
	sortFacts(snap.Facts)
	sortChunks(snap.Chunks)
	return snap, nil
}

// checkSchema validates the stored schema version, writing it on first use.
func (s *Store) checkSchema() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySchema))
		if err == badger.ErrKeyNotFound {
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], SchemaVersion)
			return txn.Set([]byte(keySchema), buf[:])
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("malformed schema record (%d bytes)", len(val))
			}
			if got := binary.BigEndian.Uint64(val); got != SchemaVersion {
				return fmt.Errorf("schema version %d, want %d", got, SchemaVersion)
			}
			return nil
		})
	})
}

func (s *Store) writeSchema() error {
	return s.db.Update(func(txn *badger.Txn) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], SchemaVersion)
		return txn.Set([]byte(keySchema), buf[:])
	})
}

// nextSeq increments and returns the monotonic ingest counter.
func nextSeq(txn *badger.Txn) (uint64, error) {
	var seq uint64
	item, err := txn.Get([]byte(keySeq))
	if err == nil {
		err = item.Value(func(val []byte) error {
			if len(val) == 8 {
				seq = binary.BigEndian.Uint64(val)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	} else if err != badger.ErrKeyNotFound {
		return 0, err
	}
	seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := txn.Set([]byte(keySeq), buf[:]); err != nil {
		return 0, err
	}
	return seq, nil
}

// chunkPrefix returns the key prefix covering all chunks of a path.
// The "#" terminator keeps "app/main.py" from matching "app/main.py.bak".
func chunkPrefix(sourcePath string) []byte {
	return []byte(prefixChunk + sourcePath + "#")
}

// deletePrefix removes every key under the given prefix within txn.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, key := range keys {
		if err := txn.Delete(key); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
	}
	return nil
}
