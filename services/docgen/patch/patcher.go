// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patch

import (
	"sort"
	"strings"
)

// Patcher applies section updates to managed documents.
//
// Thread Safety: Safe for concurrent use; each Apply call parses its own
// Document, which is discarded after serialization.
type Patcher struct {
	// sectionOrder positions newly inserted sections. Sections absent
	// from the order are appended at the end of the document.
	sectionOrder []string
}

// NewPatcher creates a patcher. sectionOrder is the canonical section
// sequence used when inserting blocks for keys not yet in the document;
// nil means new sections always go to the end.
func NewPatcher(sectionOrder []string) *Patcher {
	return &Patcher{sectionOrder: sectionOrder}
}

// Apply splices updates into document and returns the result.
//
// Description:
//
//	For each key in updates: an existing managed block has its inner
//	text replaced, leaving the marker lines and all free text
//	byte-identical; a missing key gets a new managed block (with fresh
//	markers) inserted at its canonical position. Applying the same
//	updates twice is a byte-for-byte no-op.
//
// Inputs:
//
//	document - The current document text.
//	updates - Section key to new inner content.
//
// Outputs:
//
//	string - The updated document.
//	error - *PatchError if the document's markers are malformed; the
//	        input is returned unmodified alongside the error.
func (p *Patcher) Apply(document string, updates map[string]string) (string, error) {
	doc, err := Parse(document)
	if err != nil {
		return document, err
	}

	applied := make(map[string]bool, len(updates))
	for i := range doc.blocks {
		b := &doc.blocks[i]
		if b.Kind != BlockManaged {
			continue
		}
		if content, ok := updates[b.SectionKey]; ok {
			b.Text = normalizeContent(content)
			b.hadInner = b.Text != ""
			applied[b.SectionKey] = true
		}
	}

	// Insert blocks for keys the document does not have yet,
	// in canonical order so insertion itself is deterministic.
	var missing []string
	for key := range updates {
		if !applied[key] {
			missing = append(missing, key)
		}
	}
	sortCanonical(missing, p.sectionOrder)
	for _, key := range missing {
		block := Block{
			Kind:       BlockManaged,
			SectionKey: key,
			Text:       normalizeContent(updates[key]),
		}
		block.hadInner = block.Text != ""
		doc.insert(block, p.sectionOrder)
	}

	return doc.Serialize(), nil
}

// insert places a new managed block at its canonical position: before the
// first existing managed section that comes later in the order, else at
// the end of the document.
func (d *Document) insert(block Block, order []string) {
	rank := canonicalRank(block.SectionKey, order)
	at := len(d.blocks)
	if rank >= 0 {
		for i, existing := range d.blocks {
			if existing.Kind != BlockManaged {
				continue
			}
			existingRank := canonicalRank(existing.SectionKey, order)
			if existingRank < 0 || existingRank > rank {
				at = i
				break
			}
		}
	}
	d.blocks = append(d.blocks, Block{})
	copy(d.blocks[at+1:], d.blocks[at:])
	d.blocks[at] = block
}

func canonicalRank(key string, order []string) int {
	for i, k := range order {
		if k == key {
			return i
		}
	}
	return -1
}

func sortCanonical(keys, order []string) {
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := canonicalRank(keys[i], order), canonicalRank(keys[j], order)
		if ri != rj {
			// Unordered keys sort after ordered ones.
			if ri < 0 {
				return false
			}
			if rj < 0 {
				return true
			}
			return ri < rj
		}
		return keys[i] < keys[j]
	})
}

// normalizeContent trims trailing whitespace so repeated applies of the
// same logical content converge to identical bytes.
func normalizeContent(content string) string {
	return strings.TrimRight(content, " \t\n")
}
