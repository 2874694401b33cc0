// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []string
		notWant []string
	}{
		{
			name: "basic words lowered and stopwords removed",
			text: "The Gin framework with routing",
			want: []string{"gin", "framework", "routing"},
			notWant: []string{
				"the", "with",
			},
		},
		{
			name: "camel case split",
			text: "RepoScanner walks files",
			want: []string{"reposcanner", "repo", "scanner", "walks", "files"},
		},
		{
			name: "compound identifiers split on separators",
			text: "pkg/logging uses log-rotate and term_vector",
			want: []string{"pkg", "logging", "log", "rotate", "term", "vector"},
		},
		{
			name: "plural stemming",
			text: "analyzers emit signals",
			want: []string{"analyzers", "analyzer", "signals", "signal"},
		},
		{
			name: "version digits preserved",
			text: "requires go 1.25",
			want: []string{"125", "1.25", "requires"},
		},
		{
			name: "short tokens dropped",
			text: "go is ok",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			for _, token := range tt.want {
				if _, ok := got[token]; !ok {
					t.Errorf("Tokenize(%q) missing %q, got %v", tt.text, token, got)
				}
			}
			for _, token := range tt.notWant {
				if _, ok := got[token]; ok {
					t.Errorf("Tokenize(%q) should not contain %q", tt.text, token)
				}
			}
		})
	}
}

func TestTermVector(t *testing.T) {
	t.Run("vector is L2 normalized", func(t *testing.T) {
		vec := TermVector("alpha beta alpha")
		var sum float64
		for _, v := range vec {
			sum += v * v
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("norm^2 = %f, want 1.0", sum)
		}
		if vec["alpha"] <= vec["beta"] {
			t.Errorf("alpha weight %f should exceed beta weight %f", vec["alpha"], vec["beta"])
		}
	})

	t.Run("empty text yields empty vector", func(t *testing.T) {
		if vec := TermVector("   \n"); len(vec) != 0 {
			t.Errorf("vector = %v, want empty", vec)
		}
	})
}

func TestIsNumericToken(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"1.25", true},
		{"v2.0.1", true},
		{"42", true},
		{"gin", false},
		{"v2beta", false},
		{"...", false},
	}
	for _, tt := range tests {
		if got := IsNumericToken(tt.token); got != tt.want {
			t.Errorf("IsNumericToken(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestChunker_Split(t *testing.T) {
	t.Run("short text is a single chunk", func(t *testing.T) {
		c := NewChunker(DefaultChunkerConfig())
		chunks := c.Split("one small paragraph")
		if len(chunks) != 1 {
			t.Fatalf("len(chunks) = %d, want 1", len(chunks))
		}
	})

	t.Run("long text is windowed with overlap", func(t *testing.T) {
		c := NewChunker(ChunkerConfig{WindowWords: 50, OverlapWords: 10})
		text := ""
		for i := 0; i < 120; i++ {
			text += "word "
		}
		chunks := c.Split(text)
		if len(chunks) < 2 {
			t.Fatalf("len(chunks) = %d, want windowing to split", len(chunks))
		}
		for i, chunk := range chunks {
			words := len([]rune(chunk))
			if words == 0 {
				t.Errorf("chunk %d is empty", i)
			}
		}
	})

	t.Run("headings start new chunks", func(t *testing.T) {
		c := NewChunker(ChunkerConfig{WindowWords: 50, OverlapWords: 0})
		chunks := c.Split("# Title\nintro text\n\n# Second\nmore text")
		if len(chunks) == 0 {
			t.Fatal("no chunks produced")
		}
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		c := NewChunker(DefaultChunkerConfig())
		if chunks := c.Split(""); chunks != nil {
			t.Errorf("chunks = %v, want nil", chunks)
		}
	})
}
