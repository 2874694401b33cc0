// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/docgen/services/docgen/validation"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReadmePath != "README.md" {
		t.Errorf("ReadmePath = %q", cfg.ReadmePath)
	}
	if cfg.Renderer != "fallback" {
		t.Errorf("Renderer = %q", cfg.Renderer)
	}
	if cfg.Retriever.TopK != 5 {
		t.Errorf("TopK = %d", cfg.Retriever.TopK)
	}
	if len(cfg.Sections) == 0 || cfg.Sections[0] != "intro" {
		t.Errorf("Sections = %v", cfg.Sections)
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	root := t.TempDir()
	body := `
readme_path: docs/README.md
renderer: llm
retriever:
  top_k: 3
validator:
  mode: strict
rules:
  - section: intro
    patterns: ["docs/"]
`
	if err := os.WriteFile(filepath.Join(root, DefaultFileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReadmePath != "docs/README.md" {
		t.Errorf("ReadmePath = %q", cfg.ReadmePath)
	}
	if cfg.Renderer != "llm" {
		t.Errorf("Renderer = %q", cfg.Renderer)
	}
	if cfg.Retriever.TopK != 3 {
		t.Errorf("TopK = %d", cfg.Retriever.TopK)
	}
	if cfg.Validator.Mode != validation.ModeStrict {
		t.Errorf("Mode = %q", cfg.Validator.Mode)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].SectionKey != "intro" {
		t.Errorf("Rules = %+v", cfg.Rules)
	}
	// Untouched fields keep their defaults.
	if cfg.StateDir != DefaultStateDir {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	body := "renderer: llm\n"
	if err := os.WriteFile(filepath.Join(root, DefaultFileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCGEN_RENDERER", "fallback")
	t.Setenv("DOCGEN_RETRIEVER_TOP_K", "9")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Renderer != "fallback" {
		t.Errorf("Renderer = %q", cfg.Renderer)
	}
	if cfg.Retriever.TopK != 9 {
		t.Errorf("TopK = %d", cfg.Retriever.TopK)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, DefaultFileName), []byte(":\nnot yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(root); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	t.Run("rule targeting unknown section", func(t *testing.T) {
		cfg := Default()
		cfg.Rules[0].SectionKey = "nonexistent"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing anchor section", func(t *testing.T) {
		cfg := Default()
		cfg.Sections = []string{"features"}
		cfg.Rules = cfg.Rules[1:2] // the features rule
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad renderer", func(t *testing.T) {
		cfg := Default()
		cfg.Renderer = "carrier-pigeon"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("defaults validate", func(t *testing.T) {
		if err := Default().Validate(); err != nil {
			t.Fatalf("default config invalid: %v", err)
		}
	})
}

func TestPlannerExcludes(t *testing.T) {
	cfg := Default()
	excludes := cfg.PlannerExcludes()
	if len(excludes) != 2 || excludes[0] != "README.md" || excludes[1] != ".docgen/" {
		t.Errorf("PlannerExcludes = %v", excludes)
	}
}
