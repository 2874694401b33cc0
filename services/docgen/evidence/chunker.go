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

import "strings"

// ChunkerConfig controls how source text is split into chunks.
type ChunkerConfig struct {
	// WindowWords is the maximum chunk size in words.
	WindowWords int `yaml:"window_words"`

	// OverlapWords is how many words consecutive chunks share, so a fact
	// straddling a window boundary still appears whole in one chunk.
	OverlapWords int `yaml:"overlap_words"`
}

// DefaultChunkerConfig returns the production chunking bounds.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		WindowWords:  350,
		OverlapWords: 60,
	}
}

// Chunker splits free text into bounded, overlapping word windows.
//
// Splitting prefers paragraph boundaries: paragraphs are accumulated until
// the window fills, and only oversized paragraphs are cut mid-stream. This
// keeps headings attached to the prose that follows them.
//
// Thread Safety: Safe for concurrent use; the chunker holds no state.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a chunker, clamping degenerate configuration.
func NewChunker(config ChunkerConfig) *Chunker {
	if config.WindowWords < 50 {
		config.WindowWords = 50
	}
	if config.OverlapWords > config.WindowWords/2 {
		config.OverlapWords = config.WindowWords / 2
	}
	if config.OverlapWords < 0 {
		config.OverlapWords = 0
	}
	return &Chunker{config: config}
}

// Split returns the chunk texts for the input. Empty input yields nil.
func (c *Chunker) Split(text string) []string {
	var chunks []string
	for _, para := range splitParagraphs(text) {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		if len(words) <= c.config.WindowWords {
			chunks = appendParagraph(chunks, para, c.config.WindowWords)
			continue
		}
		// Oversized paragraph: slide a window with overlap.
		start := 0
		for start < len(words) {
			end := start + c.config.WindowWords
			if end > len(words) {
				end = len(words)
			}
			chunks = append(chunks, strings.Join(words[start:end], " "))
			if end == len(words) {
				break
			}
			start = end - c.config.OverlapWords
		}
	}
	return chunks
}

// appendParagraph merges a small paragraph into the previous chunk when the
// combined size still fits the window, otherwise starts a new chunk.
func appendParagraph(chunks []string, para string, window int) []string {
	if n := len(chunks); n > 0 {
		merged := chunks[n-1] + "\n\n" + para
		if len(strings.Fields(merged)) <= window {
			chunks[n-1] = merged
			return chunks
		}
	}
	return append(chunks, para)
}

// splitParagraphs breaks text on blank lines and markdown headings.
func splitParagraphs(text string) []string {
	var paras []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			paras = append(paras, strings.TrimSpace(strings.Join(current, "\n")))
			current = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return paras
}
