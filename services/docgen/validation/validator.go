// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation implements the no-hallucination validator.
//
// Every factual sentence of generated section text must overlap with the
// evidence gathered for that section. Sentences that cannot be traced to
// observed facts or retrieved chunks become Issues, and one issue rejects
// the whole section (the caller substitutes deterministic fallback text
// for rejected sections only).
package validation

import (
	"sort"
	"strings"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
)

// Validator checks rendered section text against section evidence.
//
// Thread Safety: Safe for concurrent use after construction; Validate
// reads only its arguments and the immutable config.
type Validator struct {
	config   Config
	synonyms map[string][]string
}

// New creates a validator with the given tuning.
func New(config Config) *Validator {
	config = config.normalize()
	return &Validator{
		config:   config,
		synonyms: config.synonymMap(),
	}
}

// Validate checks one section's rendered text.
//
// Description:
//
//	Segments renderedText into sentences (code fences exempt), discards
//	boilerplate, and requires every remaining sentence to have at least
//	one token n-gram fully covered by the section's evidence. Observed
//	(fact-backed) tokens satisfy any sentence; inferred (chunk-backed)
//	tokens satisfy only in balanced mode, with synonym expansion.
//	Numeric and version tokens must match evidence exactly.
//
//	Empty renderedText is trivially accepted: there is nothing to
//	ground. A section with empty evidence rejects every sentence that
//	is not boilerplate; grounding is opt-in per section by supplying
//	evidence.
//
// Inputs:
//
//	sectionKey - Section under validation, used in issue reports.
//	renderedText - The generated section body.
//	ev - Evidence available to this section. May be empty, not nil.
//
// Outputs:
//
//	Result - Accepted flag, evidence tier, and itemized issues.
//
// Thread Safety: Safe for concurrent use.
func (v *Validator) Validate(sectionKey, renderedText string, ev *evidence.SectionEvidence) Result {
	if ev == nil {
		ev = &evidence.SectionEvidence{SectionKey: sectionKey}
	}
	result := Result{
		SectionKey: sectionKey,
		Accepted:   true,
		Tier:       TierNone,
	}

	for _, sentence := range splitSentences(renderedText) {
		if v.isBoilerplate(sentence) {
			continue
		}
		tokens := orderedTokens(sentence)
		if len(tokens) == 0 {
			continue
		}
		tier, missing := v.groundSentence(tokens, ev)
		if tier == TierNone {
			result.Accepted = false
			if len(missing) > v.config.MaxMissingReported {
				missing = missing[:v.config.MaxMissingReported]
			}
			result.Issues = append(result.Issues, Issue{
				SectionKey:    sectionKey,
				Sentence:      sentence,
				MissingTokens: missing,
			})
			continue
		}
		result.Tier = weakerTier(result.Tier, tier)
	}

	if !result.Accepted {
		result.Tier = TierNone
	}
	recordResult(result)
	return result
}

// groundSentence reports the tier that grounded the sentence, or TierNone
// with the unmatched tokens when nothing did.
func (v *Validator) groundSentence(tokens []string, ev *evidence.SectionEvidence) (Tier, []string) {
	// Versions and counts are the highest-risk hallucination category:
	// they must appear in evidence verbatim, no n-gram or synonym laxity.
	for _, token := range tokens {
		if !evidence.IsNumericToken(token) {
			continue
		}
		if !hasExact(ev.ObservedTokens, token) && !(v.allowInferred() && hasExact(ev.InferredTokens, token)) {
			return TierNone, v.missingTokens(tokens, ev)
		}
	}

	n := v.config.MinNGram
	if len(tokens) < n {
		n = len(tokens)
	}
	for start := 0; start+n <= len(tokens); start++ {
		gram := tokens[start : start+n]
		if coveredBy(gram, ev.ObservedTokens, nil) {
			return TierObserved, nil
		}
	}
	if v.allowInferred() {
		for start := 0; start+n <= len(tokens); start++ {
			gram := tokens[start : start+n]
			if coveredBy(gram, ev.InferredTokens, v.synonyms) ||
				coveredBy(gram, ev.ObservedTokens, v.synonyms) {
				return TierInferred, nil
			}
		}
	}
	return TierNone, v.missingTokens(tokens, ev)
}

// coveredBy reports whether every token of the gram is present in the set,
// optionally trying synonyms (never for numeric tokens).
func coveredBy(gram []string, set map[string]struct{}, synonyms map[string][]string) bool {
	if len(set) == 0 {
		return false
	}
	for _, token := range gram {
		if _, ok := set[token]; ok {
			continue
		}
		if synonyms != nil && !evidence.IsNumericToken(token) {
			matched := false
			for _, alt := range synonyms[token] {
				if _, ok := set[alt]; ok {
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		return false
	}
	return true
}

// missingTokens lists sentence tokens absent from both evidence tiers.
func (v *Validator) missingTokens(tokens []string, ev *evidence.SectionEvidence) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, token := range tokens {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if hasExact(ev.ObservedTokens, token) || hasExact(ev.InferredTokens, token) {
			continue
		}
		if v.synonyms != nil && !evidence.IsNumericToken(token) {
			matched := false
			for _, alt := range v.synonyms[token] {
				if hasExact(ev.ObservedTokens, alt) || hasExact(ev.InferredTokens, alt) {
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		missing = append(missing, token)
	}
	sort.Strings(missing)
	return missing
}

func (v *Validator) allowInferred() bool {
	return v.config.Mode == ModeBalanced
}

func (v *Validator) isBoilerplate(sentence string) bool {
	normalized := strings.TrimSpace(sentence)
	if normalized == "" || len(normalized) < v.config.MinSentenceLen {
		return true
	}
	for _, exact := range v.config.SafeExact {
		if normalized == exact {
			return true
		}
	}
	for _, prefix := range v.config.SafePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	// Label lines like "_Observed frameworks:" are scaffolding.
	if strings.HasPrefix(normalized, "_") && strings.HasSuffix(normalized, ":") {
		return true
	}
	return false
}

func hasExact(set map[string]struct{}, token string) bool {
	_, ok := set[token]
	return ok
}

// weakerTier folds a sentence tier into the section tier: a single
// inferred-grounded sentence demotes the whole section's tier.
func weakerTier(current, sentence Tier) Tier {
	if current == TierInferred || sentence == TierInferred {
		return TierInferred
	}
	return sentence
}

// orderedTokens returns the sentence's normalized tokens in order of
// appearance. Unlike evidence.Tokenize this preserves sequence, which the
// n-gram check needs, but applies the same lowering and punctuation
// stripping so the two sides meet in the same token space.
func orderedTokens(sentence string) []string {
	var tokens []string
	appendToken := func(s string) {
		if len(s) < 3 || evidence.IsStopword(s) {
			return
		}
		tokens = append(tokens, s)
	}
	for _, raw := range strings.Fields(sentence) {
		cleaned := strings.Trim(raw, "`()[]{}<>:;,.!?\"'")
		lowered := strings.ToLower(cleaned)
		// Compound identifiers contribute their parts in order so
		// "gin-based" can meet the evidence token "gin".
		if strings.ContainsAny(lowered, "-_/") && !evidence.IsNumericToken(lowered) {
			for _, part := range strings.FieldsFunc(lowered, func(r rune) bool {
				return r == '-' || r == '_' || r == '/'
			}) {
				appendToken(part)
			}
			continue
		}
		appendToken(lowered)
	}
	return tokens
}
