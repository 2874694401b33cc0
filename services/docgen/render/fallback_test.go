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
	"strings"
	"testing"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/validation"
)

func TestFallbackRenderSectionDeterministic(t *testing.T) {
	r := NewFallbackRenderer()
	ev := &evidence.SectionEvidence{
		SectionKey: "features",
		Facts: []evidence.Fact{
			{Kind: evidence.KindFramework, Name: "gin"},
			{Kind: evidence.KindDependency, Name: "badger", Attributes: map[string]string{"version": "v4.2.0"}},
		},
	}
	first, err := r.RenderSection(context.Background(), "features", ev)
	if err != nil {
		t.Fatalf("RenderSection: %v", err)
	}
	second, err := r.RenderSection(context.Background(), "features", ev)
	if err != nil {
		t.Fatalf("RenderSection: %v", err)
	}
	if first != second {
		t.Fatalf("fallback output not deterministic:\n%q\n%q", first, second)
	}
	if !strings.HasPrefix(first, "## Features\n") {
		t.Fatalf("missing heading: %q", first)
	}
	if !strings.Contains(first, "- Dependency: badger v4.2.0") {
		t.Errorf("dependency bullet missing: %q", first)
	}
	if !strings.Contains(first, "- Framework: gin") {
		t.Errorf("framework bullet missing: %q", first)
	}
}

func TestFallbackAllSectionsHaveHeadings(t *testing.T) {
	r := NewFallbackRenderer()
	for _, key := range DefaultSections {
		out, err := r.RenderSection(context.Background(), key, nil)
		if err != nil {
			t.Fatalf("RenderSection(%s): %v", key, err)
		}
		if !strings.HasPrefix(out, "## "+Title(key)+"\n") {
			t.Errorf("section %s missing heading: %q", key, out)
		}
		if !strings.HasSuffix(out, "\n") {
			t.Errorf("section %s missing trailing newline", key)
		}
	}
}

func TestFallbackUnknownSection(t *testing.T) {
	r := NewFallbackRenderer()
	out, err := r.RenderSection(context.Background(), "changelog", nil)
	if err != nil {
		t.Fatalf("RenderSection: %v", err)
	}
	if !strings.Contains(out, `docgen could not populate the "changelog" section yet.`) {
		t.Errorf("unexpected stub: %q", out)
	}
}

func TestFallbackCancelledContext(t *testing.T) {
	r := NewFallbackRenderer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderSection(ctx, "intro", nil); err == nil {
		t.Fatal("expected context error")
	}
}

// Fallback output must always survive validation: every sentence is either
// allowlisted boilerplate or a bullet restating a stored fact.
func TestFallbackOutputAlwaysValidates(t *testing.T) {
	r := NewFallbackRenderer()
	v := validation.New(validation.DefaultConfig())

	facts := []evidence.Fact{
		{Kind: evidence.KindLanguage, Name: "python"},
		{Kind: evidence.KindFramework, Name: "fastapi"},
		{Kind: evidence.KindDependency, Name: "sqlalchemy", Attributes: map[string]string{"version": "2.0.25"}},
		{Kind: evidence.KindEntrypoint, Name: "python app.py"},
		{Kind: evidence.KindBuildTool, Name: "docker"},
		{Kind: evidence.KindStructure, Name: "services"},
	}
	observed := make(map[string]struct{})
	for _, fact := range facts {
		for token := range evidence.Tokenize(evidence.KindLabel(fact.Kind)) {
			observed[token] = struct{}{}
		}
		for token := range evidence.Tokenize(fact.Name) {
			observed[token] = struct{}{}
		}
		for _, value := range fact.Attributes {
			for token := range evidence.Tokenize(value) {
				observed[token] = struct{}{}
			}
		}
	}

	for _, key := range DefaultSections {
		ev := &evidence.SectionEvidence{
			SectionKey:     key,
			Facts:          facts,
			ObservedTokens: observed,
			InferredTokens: map[string]struct{}{},
		}
		out, err := r.RenderSection(context.Background(), key, ev)
		if err != nil {
			t.Fatalf("RenderSection(%s): %v", key, err)
		}
		result := v.Validate(key, out, ev)
		if !result.Accepted {
			t.Errorf("fallback for %s rejected: %+v", key, result.Issues)
		}
	}
}
