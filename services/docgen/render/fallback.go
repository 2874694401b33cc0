// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
)

// FallbackRenderer emits deterministic stub bodies that never hallucinate.
//
// Every sentence it writes is either on the validator's boilerplate
// allowlist or a bullet restating a stored fact verbatim, so fallback
// output always survives validation. The orchestrator substitutes it
// whenever the primary renderer fails or its output is rejected.
type FallbackRenderer struct{}

// NewFallbackRenderer returns a stateless fallback renderer.
func NewFallbackRenderer() *FallbackRenderer {
	return &FallbackRenderer{}
}

var _ Renderer = (*FallbackRenderer)(nil)

// RenderSection writes the deterministic stub for sectionKey.
//
// Inputs:
//   - ctx: checked for cancellation only; no I/O is performed.
//   - sectionKey: canonical section key; unknown keys get a generic stub.
//   - ev: section evidence; nil is treated as empty.
//
// Outputs:
//   - string: the section body including its heading.
//   - error: ctx.Err() if the context is done, nil otherwise.
func (r *FallbackRenderer) RenderSection(ctx context.Context, sectionKey string, ev *evidence.SectionEvidence) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", Title(sectionKey))

	switch sectionKey {
	case "intro":
		b.WriteString("This README was bootstrapped by docgen to summarize the repository at a glance.\n")
		b.WriteString("Replace this text with a concise mission statement for the repository.\n")
	case "features":
		if writeFactBullets(&b, ev, evidence.KindFramework, evidence.KindDependency) {
			break
		}
		b.WriteString("docgen could not gather enough evidence to describe features yet.\n")
	case "architecture":
		if writeFactBullets(&b, ev, evidence.KindLanguage, evidence.KindStructure) {
			break
		}
		b.WriteString("Document the project structure here.\n")
	case "quickstart":
		b.WriteString("Document how to set up and run the project locally.\n")
		if writeFactBullets(&b, ev, evidence.KindEntrypoint) {
			break
		}
	case "configuration":
		b.WriteString("Add configuration details for environment variables and settings files.\n")
	case "build_and_test":
		if writeFactBullets(&b, ev, evidence.KindBuildTool) {
			break
		}
		b.WriteString("docgen could not populate build instructions from the repository.\n")
	case "deployment":
		b.WriteString("Outline deployment strategies or hosting targets here.\n")
	case "troubleshooting":
		b.WriteString("Add troubleshooting guidance for common failure modes.\n")
	case "faq":
		b.WriteString("Use this section to answer questions contributors ask repeatedly.\n")
	case "license":
		b.WriteString("Use this section to state the license terms that apply to the repository.\n")
	default:
		fmt.Fprintf(&b, "docgen could not populate the %q section yet.\n", sectionKey)
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// writeFactBullets emits one bullet per stored fact of the given kinds,
// sorted for stable output. Returns false when no matching fact exists.
func writeFactBullets(b *strings.Builder, ev *evidence.SectionEvidence, kinds ...evidence.FactKind) bool {
	if ev == nil {
		return false
	}
	wanted := make(map[evidence.FactKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}
	var lines []string
	for _, fact := range ev.Facts {
		if !wanted[fact.Kind] {
			continue
		}
		lines = append(lines, "- "+factBullet(fact))
	}
	if len(lines) == 0 {
		return false
	}
	sort.Strings(lines)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	return true
}

// factBullet renders a fact as a labeled bullet. Labels come from
// evidence.KindLabel, whose tokens are part of observed evidence, so a
// bullet never introduces vocabulary its own fact cannot ground.
func factBullet(fact evidence.Fact) string {
	label := evidence.KindLabel(fact.Kind)
	if fact.Kind == evidence.KindDependency {
		if version := fact.Attributes["version"]; version != "" {
			return fmt.Sprintf("%s: %s %s", label, fact.Name, version)
		}
	}
	return fmt.Sprintf("%s: %s", label, fact.Name)
}
