// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
)

// EntrypointAnalyzer finds executable entry points: Go main packages under
// cmd/, conventional script entry files, and Dockerfile CMD/ENTRYPOINT.
type EntrypointAnalyzer struct{}

func (*EntrypointAnalyzer) Name() string { return "entrypoints" }

func (*EntrypointAnalyzer) Supports(manifest *scanner.Manifest) bool {
	return len(manifest.Files) > 0
}

func (*EntrypointAnalyzer) Analyze(_ context.Context, manifest *scanner.Manifest) []evidence.Fact {
	var facts []evidence.Fact
	seen := make(map[string]bool)

	for _, f := range manifest.Files {
		switch {
		case strings.HasPrefix(f.Path, "cmd/") && strings.HasSuffix(f.Path, "/main.go"):
			name := strings.TrimPrefix(filepath.ToSlash(filepath.Dir(f.Path)), "cmd/")
			if seen[name] {
				continue
			}
			seen[name] = true
			facts = append(facts, evidence.Fact{
				Kind:       evidence.KindEntrypoint,
				Name:       name,
				Attributes: map[string]string{"path": f.Path, "language": "go"},
			})
		case f.Path == "main.go" || f.Path == "main.py" || f.Path == "app.py" ||
			f.Path == "manage.py" || f.Path == "index.js":
			facts = append(facts, evidence.Fact{
				Kind:       evidence.KindEntrypoint,
				Name:       f.Path,
				Attributes: map[string]string{"path": f.Path, "language": f.Language},
			})
		case strings.EqualFold(filepath.Base(f.Path), "dockerfile"):
			if cmd := dockerCommand(filepath.Join(manifest.Root, filepath.FromSlash(f.Path))); cmd != "" {
				facts = append(facts, evidence.Fact{
					Kind:       evidence.KindEntrypoint,
					Name:       cmd,
					Attributes: map[string]string{"path": f.Path, "via": "docker"},
				})
			}
		}
	}
	return facts
}

// dockerCommand extracts the last CMD or ENTRYPOINT value of a Dockerfile.
func dockerCommand(fullPath string) string {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return ""
	}
	cmd := ""
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		if strings.HasPrefix(upper, "CMD ") || strings.HasPrefix(upper, "ENTRYPOINT ") {
			value := strings.TrimSpace(trimmed[strings.Index(trimmed, " ")+1:])
			value = strings.Trim(value, "[]\"'")
			value = strings.ReplaceAll(value, "\", \"", " ")
			value = strings.ReplaceAll(value, "\",\"", " ")
			if value != "" {
				cmd = value
			}
		}
	}
	return cmd
}
