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

// Tier identifies which evidence tier grounded a section.
type Tier string

const (
	// TierObserved means every factual sentence matched fact-backed tokens.
	TierObserved Tier = "observed"

	// TierInferred means at least one sentence needed chunk-only tokens.
	TierInferred Tier = "inferred"

	// TierNone means the section contained no checkable sentences
	// (empty or pure boilerplate).
	TierNone Tier = "none"
)

// Issue describes one ungrounded sentence in a section.
type Issue struct {
	// SectionKey is the section the sentence belongs to.
	SectionKey string `json:"section_key"`

	// Sentence is the offending sentence verbatim.
	Sentence string `json:"sentence"`

	// MissingTokens lists sentence tokens with no evidence support,
	// capped for readability.
	MissingTokens []string `json:"missing_tokens"`
}

// Result is the verdict for one section.
//
// A section is rejected in full when it has any issues; there is no
// partial acceptance. Rejection of one section never affects another.
type Result struct {
	// SectionKey names the validated section.
	SectionKey string `json:"section_key"`

	// Accepted is true when every factual sentence is grounded.
	Accepted bool `json:"accepted"`

	// Tier is the weakest evidence tier any sentence relied on.
	Tier Tier `json:"tier"`

	// Issues lists the ungrounded sentences. Empty when Accepted.
	Issues []Issue `json:"issues,omitempty"`
}
