// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "docs/guide.md", "# Guide")
	writeFile(t, root, "Dockerfile", "FROM alpine")
	writeFile(t, root, "config.yaml", "key: value")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")

	manifest, err := New().Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	byPath := make(map[string]FileMeta)
	for _, f := range manifest.Files {
		byPath[f.Path] = f
	}

	if _, ok := byPath[".git/HEAD"]; ok {
		t.Error(".git contents must be excluded")
	}
	if _, ok := byPath["node_modules/pkg/index.js"]; ok {
		t.Error("node_modules must be excluded")
	}

	mainGo, ok := byPath["main.go"]
	if !ok {
		t.Fatal("main.go missing from manifest")
	}
	if mainGo.Language != "go" || mainGo.Role != RoleSource {
		t.Errorf("main.go = language %q role %q, want go/src", mainGo.Language, mainGo.Role)
	}
	if len(mainGo.Hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(mainGo.Hash))
	}
	if mainGo.Hash != HashText("package main") {
		t.Errorf("file hash does not match HashText for identical content")
	}

	if got := byPath["docs/guide.md"].Role; got != RoleDocs {
		t.Errorf("docs/guide.md role = %q, want docs", got)
	}
	if got := byPath["Dockerfile"].Role; got != RoleBuild {
		t.Errorf("Dockerfile role = %q, want build", got)
	}
	if got := byPath["config.yaml"].Role; got != RoleConfig {
		t.Errorf("config.yaml role = %q, want config", got)
	}

	// Manifest ordering is deterministic.
	for i := 1; i < len(manifest.Files); i++ {
		if manifest.Files[i-1].Path >= manifest.Files[i].Path {
			t.Errorf("manifest not sorted at %d: %s >= %s", i, manifest.Files[i-1].Path, manifest.Files[i].Path)
		}
	}
}

func TestClassifyRole(t *testing.T) {
	tests := []struct {
		path string
		want Role
	}{
		{"LICENSE", RoleLicense},
		{".github/workflows/ci.yaml", RoleBuild},
		{"infra/main.tf", RoleInfra},
		{"settings.toml", RoleConfig},
		{"docs/api.rst", RoleDocs},
		{"cmd/tool/main.go", RoleSource},
		{"data.bin", RoleOther},
	}
	for _, tt := range tests {
		if got := classifyRole(tt.path); got != tt.want {
			t.Errorf("classifyRole(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
