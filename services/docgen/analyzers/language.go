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

	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
)

// LanguageAnalyzer emits one fact per language present in the manifest,
// with a file count attribute so the renderer can rank them.
type LanguageAnalyzer struct{}

func (*LanguageAnalyzer) Name() string { return "language" }

func (*LanguageAnalyzer) Supports(manifest *scanner.Manifest) bool {
	return len(manifest.Files) > 0
}

func (*LanguageAnalyzer) Analyze(_ context.Context, manifest *scanner.Manifest) []evidence.Fact {
	counts := make(map[string]int)
	for _, f := range manifest.Files {
		if f.Language != "" {
			counts[f.Language]++
		}
	}
	languages := make([]string, 0, len(counts))
	for lang := range counts {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	facts := make([]evidence.Fact, 0, len(languages))
	for _, lang := range languages {
		facts = append(facts, evidence.Fact{
			Kind: evidence.KindLanguage,
			Name: lang,
			Attributes: map[string]string{
				"files": strconv.Itoa(counts[lang]),
			},
		})
	}
	return facts
}
