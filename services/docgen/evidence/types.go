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

import "sort"

// FactKind categorizes structured facts emitted by analyzers.
type FactKind string

const (
	// KindLanguage identifies a programming language present in the repo.
	KindLanguage FactKind = "language"

	// KindFramework identifies a detected framework (fastapi, gin, react).
	KindFramework FactKind = "framework"

	// KindDependency identifies a declared dependency.
	KindDependency FactKind = "dependency"

	// KindEntrypoint identifies an executable entry point.
	KindEntrypoint FactKind = "entrypoint"

	// KindBuildTool identifies build/CI tooling (make, docker, github-actions).
	KindBuildTool FactKind = "buildtool"

	// KindStructure describes repository layout (top-level directories).
	KindStructure FactKind = "structure"
)

// Fact is an atomic piece of structured knowledge about the repository.
//
// Facts are immutable once ingested; identity is (Kind, Name). Attributes
// carry auxiliary detail such as versions or source paths and participate
// in evidence tokenization alongside Name.
type Fact struct {
	// Kind is the category of the fact.
	Kind FactKind `json:"kind"`

	// Name is the primary value, e.g. "gin" for a framework fact.
	Name string `json:"name"`

	// Attributes holds auxiliary key/value detail (version, source path).
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Key returns the identity of the fact within the store.
func (f Fact) Key() string {
	return string(f.Kind) + "/" + f.Name
}

// KindLabel returns the human-readable label for a fact kind. Renderers
// use it in fact bullets and the orchestrator tokenizes it into observed
// evidence, so labeled bullets ground against their own facts.
func KindLabel(kind FactKind) string {
	switch kind {
	case KindLanguage:
		return "Language"
	case KindFramework:
		return "Framework"
	case KindDependency:
		return "Dependency"
	case KindEntrypoint:
		return "Entrypoint"
	case KindBuildTool:
		return "Build tool"
	case KindStructure:
		return "Structure"
	default:
		return string(kind)
	}
}

// Chunk is a bounded slice of retrievable free text with a term-frequency
// vector. Chunks are created when a source file is indexed and removed when
// the source's content hash changes or the source disappears.
type Chunk struct {
	// ID uniquely identifies the chunk, "<sourcePath>#<ordinal>".
	ID string `json:"id"`

	// SourcePath is the repo-relative path the chunk was extracted from.
	SourcePath string `json:"source_path"`

	// SectionTags lists the README sections this chunk may ground.
	SectionTags []string `json:"section_tags"`

	// Text is the chunk content.
	Text string `json:"text"`

	// TokenVector is the L2-normalized term-frequency vector of Text.
	TokenVector map[string]float64 `json:"token_vector"`

	// ContentHash is the hash of the source file at ingest time.
	ContentHash string `json:"content_hash"`

	// IngestSeq is a monotonically increasing ingest counter used for
	// deterministic recency tie-breaking in retrieval.
	IngestSeq uint64 `json:"ingest_seq"`
}

// HasTag reports whether the chunk carries any of the given section tags.
func (c *Chunk) HasTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range c.SectionTags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Snapshot is an immutable, read-only view of the store for a single run.
//
// The orchestrator builds one snapshot before planning and hands it to the
// retriever and validator. Nothing mutates a snapshot after construction,
// so it is safe to share across validation goroutines without locking.
type Snapshot struct {
	// Facts holds every persisted fact, sorted by Key for determinism.
	Facts []Fact

	// Chunks holds the chunks matching the requested section tags,
	// sorted by (SourcePath, ID).
	Chunks []*Chunk

	// SchemaVersion is the store schema the snapshot was read from.
	SchemaVersion int
}

// SectionEvidence is the grounding material for one README section.
//
// ObservedTokens come directly from Facts and carry the higher acceptance
// tier; InferredTokens come only from retrieved chunk text and are accepted
// at a lower bar (synonym expansion permitted).
type SectionEvidence struct {
	// SectionKey names the section this evidence grounds.
	SectionKey string

	// ObservedTokens are tokens backed by structured Facts.
	ObservedTokens map[string]struct{}

	// InferredTokens are tokens present only in retrieved chunks.
	InferredTokens map[string]struct{}

	// Facts are the raw facts, for prompt injection by the renderer.
	Facts []Fact

	// Chunks are the retrieved chunks, for prompt injection.
	Chunks []*Chunk
}

// Empty reports whether the section has no grounding material at all.
func (e *SectionEvidence) Empty() bool {
	return len(e.ObservedTokens) == 0 && len(e.InferredTokens) == 0
}

// sortFacts orders facts by identity key so snapshots are deterministic.
func sortFacts(facts []Fact) {
	sort.Slice(facts, func(i, j int) bool {
		return facts[i].Key() < facts[j].Key()
	})
}

// sortChunks orders chunks by (SourcePath, ID) so snapshots are deterministic.
func sortChunks(chunks []*Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].SourcePath != chunks[j].SourcePath {
			return chunks[i].SourcePath < chunks[j].SourcePath
		}
		return chunks[i].ID < chunks[j].ID
	})
}
