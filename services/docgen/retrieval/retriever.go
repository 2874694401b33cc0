// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval selects grounding chunks for README sections.
//
// Retrieval is purely lexical: chunks are scored by cosine similarity
// between term-frequency vectors. No embedding model is involved, which
// keeps retrieval deterministic and dependency-free for offline runs.
package retrieval

import (
	"sort"
	"strings"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
)

// DefaultTopK bounds how many chunks ground a single section. Small by
// design: retrieved text feeds both the prompt and the validator, and a
// handful of focused chunks beats a page of marginal ones.
const DefaultTopK = 3

// Retriever ranks evidence chunks for a section.
//
// Thread Safety: Safe for concurrent use; Retrieve reads only the
// immutable snapshot it is handed.
type Retriever struct {
	topK int
}

// NewRetriever creates a retriever returning at most topK chunks per call.
// Non-positive topK uses DefaultTopK.
func NewRetriever(topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{topK: topK}
}

// scored pairs a chunk with its similarity for ranking.
type scored struct {
	chunk *evidence.Chunk
	score float64
}

// Retrieve returns the top-k chunks for a section, best first.
//
// Description:
//
//	Scores every chunk in the snapshot tagged for sectionKey by cosine
//	similarity against the query's term vector. Ties are broken by most
//	recent ingest, then lexicographically smallest (SourcePath, ID), so
//	identical store state always yields identical output.
//
//	An empty result is valid: it means no grounding is available and the
//	caller must treat the section as low confidence.
//
// Inputs:
//
//	snap - Immutable store snapshot for this run.
//	sectionKey - Section to retrieve for (a chunk qualifies when its
//	             tags map to this section).
//	queryTerms - Free-text query, usually section title plus fact names.
//
// Outputs:
//
//	[]*evidence.Chunk - Up to topK chunks, highest score first.
func (r *Retriever) Retrieve(snap *evidence.Snapshot, sectionKey string, queryTerms []string) []*evidence.Chunk {
	query := evidence.TermVector(strings.Join(queryTerms, " "))
	if len(query) == 0 {
		return nil
	}

	var candidates []scored
	for _, chunk := range snap.Chunks {
		if !chunk.HasTag([]string{sectionKey}) {
			continue
		}
		score := cosine(query, chunk.TokenVector)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{chunk: chunk, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.chunk.IngestSeq != b.chunk.IngestSeq {
			return a.chunk.IngestSeq > b.chunk.IngestSeq
		}
		if a.chunk.SourcePath != b.chunk.SourcePath {
			return a.chunk.SourcePath < b.chunk.SourcePath
		}
		return a.chunk.ID < b.chunk.ID
	})

	if len(candidates) > r.topK {
		candidates = candidates[:r.topK]
	}
	result := make([]*evidence.Chunk, len(candidates))
	for i, c := range candidates {
		result[i] = c.chunk
	}
	return result
}

// cosine computes the dot product of two L2-normalized sparse vectors.
func cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, av := range a {
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	return dot
}
