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
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
)

// BuildToolAnalyzer detects build and CI tooling from marker files.
type BuildToolAnalyzer struct{}

func (*BuildToolAnalyzer) Name() string { return "buildtools" }

func (*BuildToolAnalyzer) Supports(manifest *scanner.Manifest) bool {
	for _, f := range manifest.Files {
		if f.Role == scanner.RoleBuild {
			return true
		}
	}
	return false
}

func (*BuildToolAnalyzer) Analyze(_ context.Context, manifest *scanner.Manifest) []evidence.Fact {
	tools := make(map[string]string)
	for _, f := range manifest.Files {
		base := strings.ToLower(filepath.Base(f.Path))
		switch {
		case base == "makefile" || strings.HasSuffix(base, ".mk"):
			tools["make"] = f.Path
		case base == "dockerfile" || base == "docker-compose.yaml" || base == "docker-compose.yml":
			tools["docker"] = f.Path
		case strings.HasPrefix(f.Path, ".github/workflows/"):
			tools["github-actions"] = f.Path
		case base == ".gitlab-ci.yml":
			tools["gitlab-ci"] = f.Path
		case base == "justfile":
			tools["just"] = f.Path
		}
	}

	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	facts := make([]evidence.Fact, 0, len(names))
	for _, name := range names {
		facts = append(facts, evidence.Fact{
			Kind:       evidence.KindBuildTool,
			Name:       name,
			Attributes: map[string]string{"source": tools[name]},
		})
	}
	return facts
}
