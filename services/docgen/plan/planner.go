// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package plan maps repository changes to the README sections they
// invalidate.
//
// Planning is rule-driven and fully deterministic: rules are evaluated in
// declared order, section output order follows rule order, and within a
// rule the first matching pattern is recorded as the reason. Identical
// inputs always produce identical plans.
package plan

import "sort"

// Strategy selects how much of the document a plan regenerates.
type Strategy string

const (
	// StrategyPatch regenerates only the planned sections.
	StrategyPatch Strategy = "patch"

	// StrategyFull regenerates the whole document (bootstrap, or a
	// store rebuild that invalidated everything).
	StrategyFull Strategy = "full"
)

// AnchorSection is the section planned when no rule matches. Every run
// produces some signal; an empty plan would hide that planning ran at all.
const AnchorSection = "intro"

// Rule binds a section to the path patterns that invalidate it.
type Rule struct {
	// SectionKey is the README section to regenerate on a match.
	SectionKey string `yaml:"section"`

	// Patterns are prefix or glob patterns (see MatchPattern).
	Patterns []string `yaml:"patterns"`
}

// UpdatePlan is the ordered regeneration decision for one run.
type UpdatePlan struct {
	// Strategy is patch for targeted updates, full for bootstrap.
	Strategy Strategy `json:"strategy"`

	// Sections lists the sections to regenerate, in rule order,
	// without duplicates.
	Sections []string `json:"sections"`

	// Reasons maps each planned section to the pattern that matched.
	Reasons map[string]string `json:"reasons"`
}

// Contains reports whether the plan includes a section.
func (p *UpdatePlan) Contains(sectionKey string) bool {
	for _, s := range p.Sections {
		if s == sectionKey {
			return true
		}
	}
	return false
}

// Planner computes update plans from changed paths.
//
// Thread Safety: Safe for concurrent use; the rule table is immutable
// after construction.
type Planner struct {
	rules []Rule

	// excluded paths (the managed document itself, docgen state) are
	// removed from the change set before matching. This is what keeps
	// a run that only edited the README from triggering another run.
	excluded []string
}

// NewPlanner creates a planner over an ordered rule table.
//
// Inputs:
//
//	rules - Evaluated in the given order; order defines output order.
//	excluded - Path patterns removed from changedPaths before planning,
//	           typically the managed README and the report file.
func NewPlanner(rules []Rule, excluded []string) *Planner {
	return &Planner{rules: rules, excluded: excluded}
}

// Plan returns the ordered set of sections requiring regeneration.
//
// Description:
//
//	Filters excluded paths out of changedPaths, then walks the rule
//	table in order. A rule whose patterns match any surviving path
//	contributes its section with the first matching pattern as reason.
//	If nothing matches (including an empty change set), the plan holds
//	only the anchor section so every run produces some signal.
//
// Inputs:
//
//	changedPaths - Flat set of repo-relative changed paths.
//
// Outputs:
//
//	*UpdatePlan - Deterministic plan; never empty.
func (p *Planner) Plan(changedPaths map[string]struct{}) *UpdatePlan {
	paths := make([]string, 0, len(changedPaths))
	for path := range changedPaths {
		if p.isExcluded(path) {
			continue
		}
		paths = append(paths, path)
	}
	// Set iteration order is random; sort so reason selection inside a
	// pattern is stable too.
	sort.Strings(paths)

	planned := &UpdatePlan{
		Strategy: StrategyPatch,
		Reasons:  make(map[string]string),
	}
	for _, rule := range p.rules {
		if planned.Contains(rule.SectionKey) {
			continue
		}
		if pattern, ok := firstMatch(rule.Patterns, paths); ok {
			planned.Sections = append(planned.Sections, rule.SectionKey)
			planned.Reasons[rule.SectionKey] = pattern
		}
	}

	if len(planned.Sections) == 0 {
		planned.Sections = []string{AnchorSection}
		planned.Reasons[AnchorSection] = "default anchor (no rule matched)"
	}
	return planned
}

// firstMatch returns the first pattern (in declared order) matching any
// changed path.
func firstMatch(patterns, paths []string) (string, bool) {
	for _, pattern := range patterns {
		for _, path := range paths {
			if MatchPattern(pattern, path) {
				return pattern, true
			}
		}
	}
	return "", false
}

func (p *Planner) isExcluded(path string) bool {
	for _, pattern := range p.excluded {
		if MatchPattern(pattern, path) {
			return true
		}
	}
	return false
}
