// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"regexp"
	"strings"
)

// sentenceBoundary splits on terminal punctuation followed by whitespace
// and a capital, digit, or backtick. Deliberately conservative: "e.g. foo"
// and "v1.2 released" do not split because the next rune is lowercase.
var sentenceBoundary = regexp.MustCompile(`([.!?])\s+([A-Z0-9` + "`" + `])`)

var (
	bulletPrefix  = regexp.MustCompile(`^[*-]\s+`)
	orderedPrefix = regexp.MustCompile(`^\d+\.\s+`)
)

// splitSentences extracts checkable sentences from rendered markdown.
//
// Text inside fenced code blocks is exempt from grounding and skipped
// entirely, as are headings and inline-code-only lines. Bullet and
// ordered-list markers are stripped so the list text itself is checked.
func splitSentences(body string) []string {
	var sentences []string
	inFence := false
	for _, rawLine := range strings.Split(body, "\n") {
		line := strings.TrimSpace(rawLine)
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "`") {
			continue
		}
		line = bulletPrefix.ReplaceAllString(line, "")
		line = orderedPrefix.ReplaceAllString(line, "")
		for _, piece := range splitLine(line) {
			if piece != "" {
				sentences = append(sentences, piece)
			}
		}
	}
	return sentences
}

// splitLine splits one line at sentence boundaries, keeping the terminal
// punctuation with the preceding sentence.
func splitLine(line string) []string {
	var pieces []string
	rest := line
	for {
		loc := sentenceBoundary.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		// loc[2]/loc[3] wrap the punctuation, loc[4] starts the next sentence.
		pieces = append(pieces, strings.TrimSpace(rest[:loc[3]]))
		rest = rest[loc[4]:]
	}
	pieces = append(pieces, strings.TrimSpace(rest))
	return pieces
}
