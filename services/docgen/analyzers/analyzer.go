// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzers extracts structured Facts from a repository manifest.
//
// Each analyzer implements a fixed capability interface, and the registry
// is an explicit list built at startup. No runtime reflection, no plugin
// loading: extensibility means adding a type here and a line to Default().
package analyzers

import (
	"context"
	"io"
	"log/slog"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
)

// Analyzer extracts facts from a repository manifest.
type Analyzer interface {
	// Name identifies the analyzer in logs and fact attributes.
	Name() string

	// Supports reports whether this analyzer applies to the repository.
	Supports(manifest *scanner.Manifest) bool

	// Analyze emits facts. Analyzers read files under manifest.Root but
	// never write; a file that fails to read yields fewer facts, not an
	// error.
	Analyze(ctx context.Context, manifest *scanner.Manifest) []evidence.Fact
}

// Registry is an ordered list of analyzers.
type Registry struct {
	analyzers []Analyzer
	logger    *slog.Logger
}

// Default returns the standard analyzer set, in emission order.
func Default(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		logger: logger,
		analyzers: []Analyzer{
			&LanguageAnalyzer{},
			&DependencyAnalyzer{},
			&EntrypointAnalyzer{},
			&BuildToolAnalyzer{},
			&StructureAnalyzer{},
		},
	}
}

// Run executes every supporting analyzer and concatenates their facts.
//
// Fact order is deterministic: analyzers run in registry order and each
// analyzer emits in a stable order derived from the sorted manifest.
func (r *Registry) Run(ctx context.Context, manifest *scanner.Manifest) []evidence.Fact {
	var facts []evidence.Fact
	for _, a := range r.analyzers {
		if err := ctx.Err(); err != nil {
			return facts
		}
		if !a.Supports(manifest) {
			continue
		}
		emitted := a.Analyze(ctx, manifest)
		r.logger.Debug("analyzer ran", "analyzer", a.Name(), "facts", len(emitted))
		facts = append(facts, emitted...)
	}
	return facts
}
