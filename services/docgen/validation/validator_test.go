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
	"testing"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
)

func tokenSet(tokens ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func evidenceWith(observed, inferred []string) *evidence.SectionEvidence {
	return &evidence.SectionEvidence{
		SectionKey:     "test",
		ObservedTokens: tokenSet(observed...),
		InferredTokens: tokenSet(inferred...),
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Run("grounded sentence accepted at observed tier", func(t *testing.T) {
		v := New(DefaultConfig())
		ev := evidenceWith([]string{"service", "exposes", "prometheus", "metrics", "port", "9090"}, nil)
		result := v.Validate("features", "The service exposes prometheus metrics.", ev)
		if !result.Accepted {
			t.Fatalf("Accepted = false, issues = %+v", result.Issues)
		}
		if result.Tier != TierObserved {
			t.Errorf("Tier = %s, want observed", result.Tier)
		}
	})

	t.Run("ungrounded claim rejected with missing tokens", func(t *testing.T) {
		// Scenario: evidence knows docgen is a python generator, the
		// model invents a Docker integration.
		v := New(DefaultConfig())
		ev := evidenceWith(nil, []string{"docgen", "generator", "python"})
		result := v.Validate("intro", "docgen integrates with Docker.", ev)
		if result.Accepted {
			t.Fatal("Accepted = true, want rejection for invented claim")
		}
		if len(result.Issues) != 1 {
			t.Fatalf("len(issues) = %d, want 1", len(result.Issues))
		}
		issue := result.Issues[0]
		if issue.SectionKey != "intro" {
			t.Errorf("issue section = %s, want intro", issue.SectionKey)
		}
		found := false
		for _, token := range issue.MissingTokens {
			if token == "docker" {
				found = true
			}
		}
		if !found {
			t.Errorf("missing tokens = %v, want to include docker", issue.MissingTokens)
		}
	})

	t.Run("inferred evidence demotes tier in balanced mode", func(t *testing.T) {
		v := New(DefaultConfig())
		ev := evidenceWith(nil, []string{"cli", "reads", "yaml", "configuration", "files"})
		result := v.Validate("configuration", "The cli reads yaml configuration files.", ev)
		if !result.Accepted {
			t.Fatalf("Accepted = false, issues = %+v", result.Issues)
		}
		if result.Tier != TierInferred {
			t.Errorf("Tier = %s, want inferred", result.Tier)
		}
	})

	t.Run("strict mode ignores inferred evidence", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Mode = ModeStrict
		v := New(cfg)
		ev := evidenceWith(nil, []string{"cli", "reads", "yaml", "configuration", "files"})
		result := v.Validate("configuration", "The cli reads yaml configuration files.", ev)
		if result.Accepted {
			t.Error("Accepted = true, want strict mode to reject chunk-only grounding")
		}
	})

	t.Run("synonym expansion applies in balanced mode only", func(t *testing.T) {
		ev := evidenceWith(nil, []string{"deployed", "cluster", "k8s"})
		text := "Services deployed on the kubernetes cluster."

		balanced := New(DefaultConfig())
		if result := balanced.Validate("deployment", text, ev); !result.Accepted {
			t.Errorf("balanced: Accepted = false, issues = %+v", result.Issues)
		}

		cfg := DefaultConfig()
		cfg.Mode = ModeStrict
		strict := New(cfg)
		if result := strict.Validate("deployment", text, ev); result.Accepted {
			t.Error("strict: Accepted = true, want synonym match disabled")
		}
	})

	t.Run("numeric tokens must match exactly", func(t *testing.T) {
		v := New(DefaultConfig())
		// Everything grounds except the invented version number.
		ev := evidenceWith([]string{"requires", "python", "3.11", "runtime", "installed"}, nil)

		good := v.Validate("quickstart", "Requires python 3.11 runtime installed everywhere.", ev)
		if !good.Accepted {
			t.Fatalf("exact version rejected: %+v", good.Issues)
		}

		bad := v.Validate("quickstart", "Requires python 3.12 runtime installed everywhere.", ev)
		if bad.Accepted {
			t.Error("Accepted = true, want rejection for wrong version number")
		}
	})

	t.Run("empty text trivially accepted", func(t *testing.T) {
		v := New(DefaultConfig())
		result := v.Validate("intro", "", evidenceWith(nil, nil))
		if !result.Accepted {
			t.Error("Accepted = false for empty text")
		}
		if result.Tier != TierNone {
			t.Errorf("Tier = %s, want none", result.Tier)
		}
	})

	t.Run("empty evidence rejects non-boilerplate", func(t *testing.T) {
		v := New(DefaultConfig())
		result := v.Validate("intro", "This project orchestrates llama inference clusters.", evidenceWith(nil, nil))
		if result.Accepted {
			t.Error("Accepted = true with empty evidence, want rejection")
		}
	})

	t.Run("boilerplate allowlist skipped even without evidence", func(t *testing.T) {
		v := New(DefaultConfig())
		body := "Replace this text with a concise mission statement for the repository."
		result := v.Validate("intro", body, evidenceWith(nil, nil))
		if !result.Accepted {
			t.Errorf("Accepted = false for allowlisted boilerplate, issues = %+v", result.Issues)
		}
	})

	t.Run("code fences exempt from grounding", func(t *testing.T) {
		v := New(DefaultConfig())
		body := "```bash\ndocker build -t fabricated-image .\nsome invented narrative sentence here\n```\n"
		result := v.Validate("quickstart", body, evidenceWith(nil, nil))
		if !result.Accepted {
			t.Errorf("Accepted = false, fenced content must be exempt: %+v", result.Issues)
		}
	})

	t.Run("one bad sentence rejects whole section", func(t *testing.T) {
		v := New(DefaultConfig())
		ev := evidenceWith([]string{"gin", "http", "server", "routes", "requests"}, nil)
		body := "The gin http server routes requests. It also trains neural networks overnight."
		result := v.Validate("architecture", body, ev)
		if result.Accepted {
			t.Fatal("Accepted = true, want full-section rejection")
		}
		if len(result.Issues) != 1 {
			t.Errorf("len(issues) = %d, want 1 (only the invented sentence)", len(result.Issues))
		}
	})
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "two sentences on one line",
			body: "First claim here. Second claim follows.",
			want: 2,
		},
		{
			name: "abbreviation does not split",
			body: "Supports e.g. incremental updates downstream.",
			want: 1,
		},
		{
			name: "headings skipped",
			body: "# Title\nActual body sentence here.",
			want: 1,
		},
		{
			name: "bullets stripped",
			body: "- first bullet point claim\n- second bullet point claim",
			want: 2,
		},
		{
			name: "fenced block skipped entirely",
			body: "```\ncode. More code. Even more.\n```\nReal sentence after fence.",
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.body)
			if len(got) != tt.want {
				t.Errorf("splitSentences(%q) = %v, want %d sentences", tt.body, got, tt.want)
			}
		})
	}
}
