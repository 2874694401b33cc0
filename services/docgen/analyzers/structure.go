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
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
)

// StructureAnalyzer summarizes the top-level repository layout.
type StructureAnalyzer struct{}

func (*StructureAnalyzer) Name() string { return "structure" }

func (*StructureAnalyzer) Supports(manifest *scanner.Manifest) bool {
	return len(manifest.Files) > 0
}

func (*StructureAnalyzer) Analyze(_ context.Context, manifest *scanner.Manifest) []evidence.Fact {
	counts := make(map[string]int)
	for _, f := range manifest.Files {
		if idx := strings.Index(f.Path, "/"); idx > 0 {
			counts[f.Path[:idx]]++
		}
	}

	dirs := make([]string, 0, len(counts))
	for dir := range counts {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	facts := make([]evidence.Fact, 0, len(dirs))
	for _, dir := range dirs {
		facts = append(facts, evidence.Fact{
			Kind:       evidence.KindStructure,
			Name:       dir,
			Attributes: map[string]string{"files": strconv.Itoa(counts[dir]), "role": "directory"},
		})
	}
	return facts
}
