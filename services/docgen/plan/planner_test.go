// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plan

import (
	"reflect"
	"testing"
)

func pathSet(paths ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

func TestPlanner_Plan(t *testing.T) {
	t.Run("sections emitted in rule order", func(t *testing.T) {
		planner := NewPlanner([]Rule{
			{SectionKey: "architecture", Patterns: []string{"app/"}},
			{SectionKey: "features", Patterns: []string{"app/"}},
		}, nil)

		got := planner.Plan(pathSet("app/main.py"))
		want := []string{"architecture", "features"}
		if !reflect.DeepEqual(got.Sections, want) {
			t.Errorf("sections = %v, want %v", got.Sections, want)
		}
		if got.Reasons["architecture"] != "app/" {
			t.Errorf("reason = %q, want the matched pattern", got.Reasons["architecture"])
		}
		if got.Strategy != StrategyPatch {
			t.Errorf("strategy = %s, want patch", got.Strategy)
		}
	})

	t.Run("no match yields anchor section, never empty", func(t *testing.T) {
		planner := NewPlanner([]Rule{
			{SectionKey: "deployment", Patterns: []string{"deploy/", "*.tf"}},
		}, nil)

		got := planner.Plan(pathSet("docs/notes.txt"))
		if !reflect.DeepEqual(got.Sections, []string{AnchorSection}) {
			t.Errorf("sections = %v, want only the anchor", got.Sections)
		}
	})

	t.Run("managed document excluded prevents feedback loop", func(t *testing.T) {
		planner := NewPlanner([]Rule{
			{SectionKey: "intro", Patterns: []string{"README.md"}},
			{SectionKey: "features", Patterns: []string{"app/"}},
		}, []string{"README.md", ".docgen/"})

		got := planner.Plan(pathSet("README.md", ".docgen/report.json"))
		if !reflect.DeepEqual(got.Sections, []string{AnchorSection}) {
			t.Errorf("sections = %v, want anchor only (README change must not re-trigger)", got.Sections)
		}
	})

	t.Run("first matching pattern recorded as reason", func(t *testing.T) {
		planner := NewPlanner([]Rule{
			{SectionKey: "build_and_test", Patterns: []string{"Makefile", "Dockerfile", "**/*.mk"}},
		}, nil)

		got := planner.Plan(pathSet("Dockerfile", "rules.mk"))
		if got.Reasons["build_and_test"] != "Dockerfile" {
			t.Errorf("reason = %q, want Dockerfile (first declared pattern that matched)", got.Reasons["build_and_test"])
		}
	})

	t.Run("deterministic across repeated calls", func(t *testing.T) {
		planner := NewPlanner([]Rule{
			{SectionKey: "architecture", Patterns: []string{"services/", "pkg/"}},
			{SectionKey: "configuration", Patterns: []string{"**/*.yaml"}},
			{SectionKey: "quickstart", Patterns: []string{"cmd/"}},
		}, nil)
		changed := pathSet("services/api.go", "config/base.yaml", "cmd/main.go")

		first := planner.Plan(changed)
		for i := 0; i < 10; i++ {
			again := planner.Plan(changed)
			if !reflect.DeepEqual(again, first) {
				t.Fatalf("plan differs on run %d: %+v vs %+v", i, again, first)
			}
		}
	})

	t.Run("duplicate section keys collapse to first rule", func(t *testing.T) {
		planner := NewPlanner([]Rule{
			{SectionKey: "features", Patterns: []string{"app/"}},
			{SectionKey: "features", Patterns: []string{"lib/"}},
		}, nil)
		got := planner.Plan(pathSet("app/x.go", "lib/y.go"))
		if len(got.Sections) != 1 {
			t.Errorf("sections = %v, want features once", got.Sections)
		}
		if got.Reasons["features"] != "app/" {
			t.Errorf("reason = %q, want the first rule's pattern", got.Reasons["features"])
		}
	})
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"app/", "app/main.py", true},
		{"app/", "application/main.py", false},
		{"Dockerfile", "Dockerfile", true},
		{"Dockerfile", "sub/Dockerfile", false},
		{"docs", "docs/guide.md", true},
		{"*.tf", "main.tf", true},
		{"*.tf", "infra/main.tf", true},
		{"**/*.yaml", "a/b/c.yaml", true},
		{"**/*.yaml", "c.yaml", true},
		{"services/**/*.go", "services/api/handler.go", true},
		{"services/**/*.go", "cmd/main.go", false},
		{"src/**", "src/deep/nested/file.rs", true},
		{"src/**", "other/file.rs", false},
	}
	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.path); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}
