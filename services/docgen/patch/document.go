// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patch splices regenerated section content into a managed
// document without disturbing anything outside the marked regions.
//
// A managed region is delimited by an HTML-comment marker pair:
//
//	<!-- docgen:begin:quickstart -->
//	...content owned by docgen...
//	<!-- docgen:end:quickstart -->
//
// Everything outside marker pairs is free text that the patcher never
// touches, byte for byte. Malformed marker structure is a fatal
// PatchError, never silently repaired.
package patch

import (
	"fmt"
	"strings"
)

// Marker formats, shared with the fallback renderer so bootstrapped
// documents round-trip through the patcher unchanged.
const (
	beginPrefix = "<!-- docgen:begin:"
	endPrefix   = "<!-- docgen:end:"
	markerClose = " -->"
)

// BeginMarker returns the begin marker line for a section key.
func BeginMarker(sectionKey string) string {
	return beginPrefix + sectionKey + markerClose
}

// EndMarker returns the end marker line for a section key.
func EndMarker(sectionKey string) string {
	return endPrefix + sectionKey + markerClose
}

// BlockKind discriminates document blocks.
type BlockKind int

const (
	// BlockFreeText is unmanaged content, preserved verbatim.
	BlockFreeText BlockKind = iota

	// BlockManaged is a marker-delimited region owned by the patcher.
	BlockManaged
)

// Block is one region of a parsed document.
type Block struct {
	// Kind discriminates free text from managed regions.
	Kind BlockKind

	// SectionKey is set for managed blocks.
	SectionKey string

	// Text is the verbatim content: for free text, the raw lines; for
	// managed blocks, the inner content between (not including) the
	// marker lines.
	Text string

	// hadInner distinguishes a managed block containing one blank line
	// from one containing nothing, keeping serialization byte-faithful.
	hadInner bool
}

// Document is a parsed managed document. It is owned exclusively by one
// patch operation and discarded after serialization.
type Document struct {
	blocks []Block

	// trailingNewline records whether the source ended with a newline,
	// so serialization is byte-faithful.
	trailingNewline bool
}

// Blocks returns the parsed blocks in document order.
func (d *Document) Blocks() []Block {
	return d.blocks
}

// SectionKeys returns the managed section keys in document order.
func (d *Document) SectionKeys() []string {
	var keys []string
	for _, b := range d.blocks {
		if b.Kind == BlockManaged {
			keys = append(keys, b.SectionKey)
		}
	}
	return keys
}

// Parse scans a document into blocks by locating marker pairs.
//
// Description:
//
//	Walks the document line by line. A begin marker opens a managed
//	block that must be closed by the matching end marker before any
//	other marker appears; nesting and overlap are structural errors.
//	Duplicate keys, stray end markers, and unterminated begin markers
//	are also fatal.
//
// Outputs:
//
//	*Document - The parsed document.
//	error - *PatchError describing the first structural problem.
func Parse(text string) (*Document, error) {
	doc := &Document{
		trailingNewline: strings.HasSuffix(text, "\n"),
	}
	lines := strings.Split(text, "\n")
	if doc.trailingNewline {
		// Split leaves a phantom empty element after the final newline.
		lines = lines[:len(lines)-1]
	}

	seen := make(map[string]bool)
	var free []string
	var inner []string
	currentKey := ""
	openLine := 0
	inManaged := false

	flushFree := func() {
		if len(free) > 0 {
			doc.blocks = append(doc.blocks, Block{Kind: BlockFreeText, Text: strings.Join(free, "\n")})
			free = nil
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, beginPrefix):
			key, err := markerKey(trimmed, beginPrefix, lineNo)
			if err != nil {
				return nil, err
			}
			if inManaged {
				return nil, &PatchError{SectionKey: key, Line: lineNo,
					Reason: fmt.Sprintf("begin marker inside open section %q (markers must not nest)", currentKey)}
			}
			if seen[key] {
				return nil, &PatchError{SectionKey: key, Line: lineNo, Reason: "duplicate begin marker"}
			}
			flushFree()
			seen[key] = true
			currentKey = key
			openLine = lineNo
			inManaged = true
			inner = nil

		case strings.HasPrefix(trimmed, endPrefix):
			key, err := markerKey(trimmed, endPrefix, lineNo)
			if err != nil {
				return nil, err
			}
			if !inManaged {
				return nil, &PatchError{SectionKey: key, Line: lineNo, Reason: "end marker without begin"}
			}
			if key != currentKey {
				return nil, &PatchError{SectionKey: key, Line: lineNo,
					Reason: fmt.Sprintf("end marker does not match open section %q (markers must not overlap)", currentKey)}
			}
			doc.blocks = append(doc.blocks, Block{
				Kind:       BlockManaged,
				SectionKey: currentKey,
				Text:       strings.Join(inner, "\n"),
				hadInner:   len(inner) > 0,
			})
			inManaged = false
			currentKey = ""

		default:
			if inManaged {
				inner = append(inner, line)
			} else {
				free = append(free, line)
			}
		}
	}

	if inManaged {
		return nil, &PatchError{SectionKey: currentKey, Line: openLine, Reason: "begin marker without matching end"}
	}
	flushFree()
	return doc, nil
}

// Serialize renders the document back to text.
//
// Managed blocks are emitted as begin marker, inner text, end marker;
// free text is emitted verbatim. Parsing and serializing an untouched
// document is byte-identical.
func (d *Document) Serialize() string {
	var lines []string
	for _, b := range d.blocks {
		switch b.Kind {
		case BlockFreeText:
			lines = append(lines, b.Text)
		case BlockManaged:
			lines = append(lines, BeginMarker(b.SectionKey))
			if b.Text != "" || b.hadInner {
				lines = append(lines, b.Text)
			}
			lines = append(lines, EndMarker(b.SectionKey))
		}
	}
	out := strings.Join(lines, "\n")
	if d.trailingNewline {
		out += "\n"
	}
	return out
}

// markerKey extracts and validates the section key from a marker line.
func markerKey(line, prefix string, lineNo int) (string, error) {
	rest, ok := strings.CutSuffix(line, markerClose)
	if !ok {
		return "", &PatchError{Line: lineNo, Reason: "malformed marker (missing close)"}
	}
	key := strings.TrimPrefix(rest, prefix)
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", &PatchError{Line: lineNo, Reason: fmt.Sprintf("malformed marker key %q", key)}
	}
	return key, nil
}
