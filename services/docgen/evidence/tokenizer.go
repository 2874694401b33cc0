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
	"math"
	"regexp"
	"strings"
	"unicode"
)

// tokenPattern matches word-like runs including the separators that show up
// in identifiers, versions, and paths (docgen-cli, pkg/logging, v1.2.3).
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9_.:/-]*`)

var nonDigit = regexp.MustCompile(`\D`)

// stopwords are common English words excluded from evidence and sentence
// tokens. Matching on them would let filler prose pass as grounded.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "against": {}, "all": {}, "also": {},
	"and": {}, "any": {}, "are": {}, "because": {}, "being": {},
	"below": {}, "between": {}, "both": {}, "but": {}, "each": {},
	"from": {}, "have": {}, "into": {}, "its": {}, "more": {},
	"must": {}, "only": {}, "other": {}, "over": {}, "some": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "them": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "under": {}, "using": {}, "very": {}, "were": {},
	"when": {}, "where": {}, "which": {}, "will": {}, "with": {},
	"within": {}, "follow": {}, "step": {}, "steps": {}, "started": {},
	"consistent": {}, "designed": {}, "powered": {}, "highlight": {},
	"highlights": {}, "rest": {}, "docs": {}, "docgen": {}, "context": {},
}

// IsStopword reports whether a lowered token is in the shared stopword
// list. The validator uses the same list so both sides of the overlap
// check live in one token space.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// minTokenLen is the shortest token worth indexing. Two-character tokens
// ("go", "of") collide with prose too often to be useful evidence.
const minTokenLen = 3

// Tokenize extracts normalized evidence tokens from text.
//
// Description:
//
//	Produces a case-folded token set suitable for overlap matching:
//	each word-like run is lowered and stripped of wrapping punctuation,
//	camelCase identifiers are additionally split on case boundaries,
//	compound identifiers are split on -, _, / and ., naive plural
//	suffixes are stemmed, and digit runs of length >= 2 are indexed
//	verbatim so version numbers stay exact-matchable.
//
// Inputs:
//
//	text - Any free text or identifier string.
//
// Outputs:
//
//	map[string]struct{} - The normalized token set. Never nil.
//
// Thread Safety: Pure function, safe for concurrent use.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, raw := range tokenPattern.FindAllString(text, -1) {
		cleaned := strings.Trim(raw, "`()[]{}<>:;,!")
		if len(cleaned) < minTokenLen {
			continue
		}
		lowered := strings.ToLower(cleaned)
		if _, stop := stopwords[lowered]; stop {
			continue
		}
		tokens[lowered] = struct{}{}

		if hasInteriorUpper(raw) {
			for _, part := range splitCamel(raw) {
				addToken(tokens, part)
			}
		}
		for _, sep := range []string{"-", "_", "/", "."} {
			if strings.Contains(raw, sep) {
				for _, part := range strings.Split(raw, sep) {
					addToken(tokens, part)
				}
			}
		}
		// Naive plural stemming keeps "analyzers" matching "analyzer".
		if strings.HasSuffix(lowered, "es") && len(lowered) > 5 {
			tokens[lowered[:len(lowered)-2]] = struct{}{}
		}
		if strings.HasSuffix(lowered, "s") && len(lowered) > 4 {
			tokens[lowered[:len(lowered)-1]] = struct{}{}
		}
		if strings.ContainsFunc(raw, unicode.IsDigit) {
			digits := nonDigit.ReplaceAllString(raw, "")
			if len(digits) >= 2 {
				tokens[digits] = struct{}{}
			}
		}
	}
	return tokens
}

// TermVector computes the L2-normalized term-frequency vector of text.
//
// The vector keys are raw lowered words (no camel splitting or stemming);
// retrieval wants surface-form cosine similarity, not the aggressive
// normalization used for grounding overlap.
func TermVector(text string) map[string]float64 {
	counts := make(map[string]float64)
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		counts[strings.ToLower(field)]++
	}
	if len(counts) == 0 {
		return counts
	}
	var sum float64
	for _, v := range counts {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	for k, v := range counts {
		counts[k] = v / norm
	}
	return counts
}

// IsNumericToken reports whether a token is a version/count style value
// that must match evidence exactly (no synonym or stem laxity).
func IsNumericToken(token string) bool {
	hasDigit := false
	for _, r := range token {
		if unicode.IsDigit(r) {
			hasDigit = true
		} else if r != '.' && r != '-' && r != '_' && r != 'v' {
			return false
		}
	}
	return hasDigit
}

func addToken(tokens map[string]struct{}, part string) {
	lowered := strings.ToLower(part)
	if len(lowered) < minTokenLen {
		return
	}
	if _, stop := stopwords[lowered]; stop {
		return
	}
	tokens[lowered] = struct{}{}
}

func hasInteriorUpper(s string) bool {
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func splitCamel(s string) []string {
	var parts []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			parts = append(parts, s[start:i])
			start = i
		}
	}
	parts = append(parts, s[start:])
	return parts
}
