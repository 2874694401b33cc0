// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/docgen/services/docgen/config"
	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/patch"
	"github.com/AleutianAI/docgen/services/docgen/plan"
	"github.com/AleutianAI/docgen/services/docgen/render"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
)

func fileMetaFor(path, role string) scanner.FileMeta {
	return scanner.FileMeta{Path: path, Role: scanner.Role(role)}
}

// writeRepo lays down a small Python repo fixture.
func writeRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"app/main.py": "from fastapi import FastAPI\n\napp = FastAPI()\n\n" +
			"@app.get(\"/health\")\ndef health():\n    return {\"status\": \"ok\"}\n",
		"requirements.txt": "fastapi==0.110.0\n",
		"Dockerfile": "FROM python:3.11-slim\nCOPY . /srv\n" +
			"CMD [\"python\", \"app/main.py\"]\n",
		"docs/overview.md": "# Overview\n\nA small HTTP service exposing a health endpoint.\n",
	}
	for path, body := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newPipeline(t *testing.T, root string, renderer render.Renderer) *Pipeline {
	t.Helper()
	cfg := config.Default()
	p, err := New(root, cfg, renderer, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func readDoc(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "README.md"))
	if err != nil {
		t.Fatalf("reading README: %v", err)
	}
	return string(data)
}

func TestPipeline_BootstrapAndPatch(t *testing.T) {
	root := writeRepo(t)
	p := newPipeline(t, root, nil)
	ctx := context.Background()

	// First run bootstraps the whole document.
	report, err := p.Update(ctx, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if report.Strategy != plan.StrategyFull {
		t.Errorf("Strategy = %q, want full", report.Strategy)
	}
	if !report.DocumentChanged {
		t.Error("bootstrap did not write the document")
	}
	doc := readDoc(t, root)
	for _, key := range config.Default().Sections {
		if !strings.Contains(doc, patch.BeginMarker(key)) {
			t.Errorf("document missing marker for %s", key)
		}
		section, ok := report.Sections[key]
		if !ok {
			t.Errorf("report missing section %s", key)
			continue
		}
		if !section.Accepted {
			t.Errorf("section %s not accepted: %+v", key, section.Issues)
		}
		if section.FellBack {
			t.Errorf("section %s fell back on primary fallback renderer", key)
		}
	}

	// A source change plans only the matching sections and, with
	// unchanged evidence, leaves the document byte-identical.
	report, err = p.Update(ctx, map[string]struct{}{"app/main.py": {}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if report.Strategy != plan.StrategyPatch {
		t.Errorf("Strategy = %q, want patch", report.Strategy)
	}
	wantSections := []string{"architecture", "features"}
	if len(report.Sections) != len(wantSections) {
		t.Errorf("planned sections = %v, want %v", report.SectionKeys(), wantSections)
	}
	for _, key := range wantSections {
		if _, ok := report.Sections[key]; !ok {
			t.Errorf("section %s not planned", key)
		}
	}
	if report.DocumentChanged {
		t.Error("unchanged evidence rewrote the document")
	}
	if readDoc(t, root) != doc {
		t.Error("document bytes changed on idempotent update")
	}
}

func TestPipeline_PreservesUnmanagedText(t *testing.T) {
	root := writeRepo(t)
	p := newPipeline(t, root, nil)
	ctx := context.Background()

	if _, err := p.Update(ctx, nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	custom := "\n# Maintainer notes\n\nHand-written, keep out of docgen's reach.\n"
	doc := readDoc(t, root) + custom
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := p.Update(ctx, map[string]struct{}{"requirements.txt": {}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := readDoc(t, root)
	if !strings.Contains(got, "Hand-written, keep out of docgen's reach.") {
		t.Error("unmanaged text lost")
	}
	if strings.Count(got, "Maintainer notes") != 1 {
		t.Error("unmanaged text duplicated")
	}
	if report.Strategy != plan.StrategyPatch {
		t.Errorf("Strategy = %q, want patch", report.Strategy)
	}
}

// ungroundedRenderer fabricates claims no evidence supports.
type ungroundedRenderer struct{}

func (ungroundedRenderer) RenderSection(_ context.Context, sectionKey string, _ *evidence.SectionEvidence) (string, error) {
	return "## " + render.Title(sectionKey) + "\n\n" +
		"This project cures latency with proprietary blockchain synergy.\n", nil
}

func TestPipeline_RejectedSectionFallsBack(t *testing.T) {
	root := writeRepo(t)
	p := newPipeline(t, root, ungroundedRenderer{})
	ctx := context.Background()

	report, err := p.Update(ctx, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	for key, section := range report.Sections {
		if !section.FellBack {
			t.Errorf("section %s did not fall back", key)
		}
		if !section.Accepted {
			t.Errorf("fallback for %s not accepted", key)
		}
		if len(section.Issues) == 0 {
			t.Errorf("section %s has no recorded issues", key)
		}
	}
	doc := readDoc(t, root)
	if strings.Contains(doc, "blockchain synergy") {
		t.Error("ungrounded text reached the document")
	}
}

func TestPipeline_ReportPersisted(t *testing.T) {
	root := writeRepo(t)
	p := newPipeline(t, root, nil)

	want, err := p.Update(context.Background(), map[string]struct{}{"Dockerfile": {}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := LoadReport(p.StateDir())
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if got.Strategy != want.Strategy {
		t.Errorf("Strategy = %q, want %q", got.Strategy, want.Strategy)
	}
	if len(got.Sections) != len(want.Sections) {
		t.Errorf("Sections = %v, want %v", got.SectionKeys(), want.SectionKeys())
	}
}

func TestPipeline_Index(t *testing.T) {
	root := writeRepo(t)
	p := newPipeline(t, root, nil)
	ctx := context.Background()

	summary, err := p.Index(ctx, false)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if summary.Files != 4 {
		t.Errorf("Files = %d, want 4", summary.Files)
	}
	if summary.Facts == 0 {
		t.Error("no facts extracted")
	}
	if summary.Rebuilt {
		t.Error("fresh store reported a rebuild")
	}

	summary, err = p.Index(ctx, true)
	if err != nil {
		t.Fatalf("Index(force): %v", err)
	}
	if !summary.Rebuilt {
		t.Error("forced index did not rebuild")
	}
}

func TestSectionTagsFor(t *testing.T) {
	root := writeRepo(t)
	p := newPipeline(t, root, nil)

	tests := []struct {
		path string
		role string
		want []string
	}{
		{"app/main.py", "src", []string{"architecture", "features"}},
		{"docs/overview.md", "docs", []string{"intro"}},
		{"Dockerfile", "build", []string{"build_and_test", "deployment"}},
		{"mystery.bin", "other", []string{"intro"}},
	}
	for _, tc := range tests {
		got := p.sectionTagsFor(fileMetaFor(tc.path, tc.role))
		if len(got) != len(tc.want) {
			t.Errorf("tags(%s) = %v, want %v", tc.path, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("tags(%s) = %v, want %v", tc.path, got, tc.want)
				break
			}
		}
	}
}
