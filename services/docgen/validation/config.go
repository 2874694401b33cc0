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

import "strings"

// Mode selects how strict grounding is.
type Mode string

const (
	// ModeStrict accepts only fact-backed (observed) evidence and
	// disables synonym expansion.
	ModeStrict Mode = "strict"

	// ModeBalanced additionally accepts chunk-backed (inferred) evidence
	// and expands synonyms before matching.
	ModeBalanced Mode = "balanced"
)

// Config tunes the no-hallucination validator.
//
// Every threshold here is heuristic and tuned against small-model output;
// treat them as configuration to re-tune per corpus, not as constants.
type Config struct {
	// Mode selects strict or balanced grounding.
	Mode Mode `yaml:"mode"`

	// MinNGram is the n-gram length used for overlap matching.
	MinNGram int `yaml:"min_ngram"`

	// MinSentenceLen skips sentences shorter than this many bytes;
	// fragments that short carry no checkable claim.
	MinSentenceLen int `yaml:"min_sentence_len"`

	// MaxMissingReported caps MissingTokens per issue.
	MaxMissingReported int `yaml:"max_missing_reported"`

	// SafeExact lists boilerplate sentences that are always skipped.
	SafeExact []string `yaml:"safe_exact"`

	// SafePrefixes lists boilerplate sentence prefixes always skipped.
	SafePrefixes []string `yaml:"safe_prefixes"`

	// SynonymGroups lists interchangeable token groups, applied only
	// in balanced mode and never to numeric tokens.
	SynonymGroups [][]string `yaml:"synonym_groups"`
}

// DefaultConfig returns the shipped validator tuning.
//
// The allowlist covers the scaffolding phrases the fallback renderer and
// templates emit on every run; they carry no factual content.
func DefaultConfig() Config {
	return Config{
		Mode:               ModeBalanced,
		MinNGram:           3,
		MinSentenceLen:     20,
		MaxMissingReported: 8,
		SafeExact: []string{
			"This README was bootstrapped by docgen to summarize the repository at a glance.",
			"Replace this text with a concise mission statement for the repository.",
			"Document the project structure here.",
			"Document how to set up and run the project locally.",
			"Outline deployment strategies or hosting targets here.",
		},
		SafePrefixes: []string{
			"Replace this text",
			"Document the project structure",
			"Ready for continuous README generation",
			"Use this section",
			"Add deployment details",
			"Add troubleshooting guidance",
			"Add configuration details",
			"docgen could not populate",
			"docgen could not gather",
			"Follow the steps below",
		},
		SynonymGroups: [][]string{
			{"dynamodb", "aws-dynamodb", "amazon-dynamodb"},
			{"terraform", "iac", "hashicorp-terraform"},
			{"postgres", "postgresql"},
			{"kubernetes", "k8s"},
			{"golang", "go"},
			{"javascript", "js", "node", "nodejs"},
		},
	}
}

// normalize fills zero values with defaults so a partially specified
// config from YAML behaves sensibly.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Mode != ModeStrict && c.Mode != ModeBalanced {
		c.Mode = def.Mode
	}
	if c.MinNGram <= 0 {
		c.MinNGram = def.MinNGram
	}
	if c.MinSentenceLen <= 0 {
		c.MinSentenceLen = def.MinSentenceLen
	}
	if c.MaxMissingReported <= 0 {
		c.MaxMissingReported = def.MaxMissingReported
	}
	if c.SafeExact == nil {
		c.SafeExact = def.SafeExact
	}
	if c.SafePrefixes == nil {
		c.SafePrefixes = def.SafePrefixes
	}
	if c.SynonymGroups == nil {
		c.SynonymGroups = def.SynonymGroups
	}
	return c
}

// synonymMap expands the configured groups into a token -> group lookup.
func (c Config) synonymMap() map[string][]string {
	if c.Mode != ModeBalanced {
		return nil
	}
	m := make(map[string][]string)
	for _, group := range c.SynonymGroups {
		lowered := make([]string, 0, len(group))
		for _, token := range group {
			lowered = append(lowered, strings.ToLower(token))
		}
		for _, token := range lowered {
			m[token] = lowered
		}
	}
	return m
}
