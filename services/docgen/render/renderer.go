// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package render produces section bodies for the managed README.
//
// Two renderers exist: an LLM-backed one that writes prose from the
// section's evidence, and a deterministic fallback that the pipeline
// substitutes whenever generation fails or validation rejects a section.
package render

import (
	"context"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
)

// DefaultSections is the canonical section order for new documents.
var DefaultSections = []string{
	"intro",
	"features",
	"architecture",
	"quickstart",
	"configuration",
	"build_and_test",
	"deployment",
	"troubleshooting",
	"faq",
	"license",
}

// SectionTitles maps section keys to their rendered headings.
var SectionTitles = map[string]string{
	"intro":           "Introduction",
	"features":        "Features",
	"architecture":    "Architecture",
	"quickstart":      "Quickstart",
	"configuration":   "Configuration",
	"build_and_test":  "Build and Test",
	"deployment":      "Deployment",
	"troubleshooting": "Troubleshooting",
	"faq":             "FAQ",
	"license":         "License",
}

// Title returns the heading for a section key, falling back to the key.
func Title(sectionKey string) string {
	if title, ok := SectionTitles[sectionKey]; ok {
		return title
	}
	return sectionKey
}

// Renderer produces the body text for one README section.
type Renderer interface {
	// RenderSection writes the body for sectionKey, grounded on ev.
	// The returned text is subject to validation; renderers should cite
	// the supplied facts and chunks rather than invent.
	RenderSection(ctx context.Context, sectionKey string, ev *evidence.SectionEvidence) (string, error)
}
