// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patch

import (
	"errors"
	"strings"
	"testing"
)

func TestPatcher_Apply(t *testing.T) {
	t.Run("replaces managed content, free text byte-identical", func(t *testing.T) {
		doc := "# Project\n" +
			"hand written intro\n" +
			"<!-- docgen:begin:quickstart -->\n" +
			"OLD\n" +
			"<!-- docgen:end:quickstart -->\n" +
			"hand written footer\n"

		p := NewPatcher(nil)
		got, err := p.Apply(doc, map[string]string{"quickstart": "NEW"})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}

		want := "# Project\n" +
			"hand written intro\n" +
			"<!-- docgen:begin:quickstart -->\n" +
			"NEW\n" +
			"<!-- docgen:end:quickstart -->\n" +
			"hand written footer\n"
		if got != want {
			t.Errorf("Apply =\n%q\nwant\n%q", got, want)
		}
	})

	t.Run("idempotent: re-applying identical updates is a no-op", func(t *testing.T) {
		doc := "intro text\n" +
			"<!-- docgen:begin:features -->\n" +
			"old features\n" +
			"<!-- docgen:end:features -->\n"
		updates := map[string]string{
			"features": "uses gin for routing\n",
			"intro":    "a grounded readme generator",
		}

		p := NewPatcher([]string{"intro", "features"})
		once, err := p.Apply(doc, updates)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		twice, err := p.Apply(once, updates)
		if err != nil {
			t.Fatalf("Apply second: %v", err)
		}
		if once != twice {
			t.Errorf("apply(apply(D,U),U) != apply(D,U):\n%q\nvs\n%q", twice, once)
		}
	})

	t.Run("missing section inserted in canonical order", func(t *testing.T) {
		doc := "<!-- docgen:begin:intro -->\n" +
			"about\n" +
			"<!-- docgen:end:intro -->\n" +
			"<!-- docgen:begin:deployment -->\n" +
			"ship it\n" +
			"<!-- docgen:end:deployment -->\n"

		p := NewPatcher([]string{"intro", "features", "deployment"})
		got, err := p.Apply(doc, map[string]string{"features": "fast"})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}

		featIdx := strings.Index(got, "docgen:begin:features")
		depIdx := strings.Index(got, "docgen:begin:deployment")
		introIdx := strings.Index(got, "docgen:begin:intro")
		if featIdx < 0 {
			t.Fatal("features block not inserted")
		}
		if !(introIdx < featIdx && featIdx < depIdx) {
			t.Errorf("features inserted out of order: intro=%d features=%d deployment=%d", introIdx, featIdx, depIdx)
		}
	})

	t.Run("unknown section appended at end", func(t *testing.T) {
		doc := "free text only\n"
		p := NewPatcher([]string{"intro"})
		got, err := p.Apply(doc, map[string]string{"faq": "none yet"})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if !strings.HasSuffix(got, "<!-- docgen:begin:faq -->\nnone yet\n<!-- docgen:end:faq -->\n") {
			t.Errorf("faq not appended at end:\n%q", got)
		}
		if !strings.HasPrefix(got, "free text only\n") {
			t.Errorf("free text disturbed:\n%q", got)
		}
	})

	t.Run("empty updates leaves document byte-identical", func(t *testing.T) {
		doc := "# Title\n\n<!-- docgen:begin:intro -->\nabout\n<!-- docgen:end:intro -->\n\ntail\n"
		p := NewPatcher(nil)
		got, err := p.Apply(doc, nil)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if got != doc {
			t.Errorf("document changed with no updates:\n%q\nvs\n%q", got, doc)
		}
	})
}

func TestParse_MalformedMarkers(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "begin without end",
			doc:  "<!-- docgen:begin:intro -->\ncontent\n",
		},
		{
			name: "end without begin",
			doc:  "content\n<!-- docgen:end:intro -->\n",
		},
		{
			name: "overlapping sections",
			doc: "<!-- docgen:begin:a -->\n" +
				"<!-- docgen:begin:b -->\n" +
				"<!-- docgen:end:a -->\n" +
				"<!-- docgen:end:b -->\n",
		},
		{
			name: "mismatched end key",
			doc: "<!-- docgen:begin:a -->\n" +
				"content\n" +
				"<!-- docgen:end:b -->\n",
		},
		{
			name: "duplicate section key",
			doc: "<!-- docgen:begin:a -->\nx\n<!-- docgen:end:a -->\n" +
				"<!-- docgen:begin:a -->\ny\n<!-- docgen:end:a -->\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.doc)
			if err == nil {
				t.Fatal("Parse = nil error, want *PatchError")
			}
			var patchErr *PatchError
			if !errors.As(err, &patchErr) {
				t.Errorf("error type = %T, want *PatchError", err)
			}

			// The document must be left untouched on fatal errors.
			p := NewPatcher(nil)
			got, applyErr := p.Apply(tt.doc, map[string]string{"a": "new"})
			if applyErr == nil {
				t.Fatal("Apply = nil error on malformed document")
			}
			if got != tt.doc {
				t.Errorf("Apply modified a malformed document:\n%q\nvs\n%q", got, tt.doc)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	docs := []string{
		"",
		"plain text, no markers\n",
		"no trailing newline",
		"<!-- docgen:begin:intro -->\nbody\n<!-- docgen:end:intro -->\n",
		"pre\n<!-- docgen:begin:a -->\n\n<!-- docgen:end:a -->\npost\n",
	}
	for _, doc := range docs {
		parsed, err := Parse(doc)
		if err != nil {
			t.Fatalf("Parse(%q): %v", doc, err)
		}
		if got := parsed.Serialize(); got != doc {
			t.Errorf("round trip:\n%q\nvs\n%q", got, doc)
		}
	}
}
