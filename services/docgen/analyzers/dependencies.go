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
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
)

// wellKnownFrameworks maps dependency names to framework facts, so the
// README can say "built on gin" instead of just listing modules.
var wellKnownFrameworks = map[string]string{
	"github.com/gin-gonic/gin":     "gin",
	"github.com/spf13/cobra":       "cobra",
	"github.com/gorilla/mux":       "gorilla-mux",
	"google.golang.org/grpc":       "grpc",
	"fastapi":                      "fastapi",
	"flask":                        "flask",
	"django":                       "django",
	"react":                        "react",
	"vue":                          "vue",
	"express":                      "express",
	"github.com/dgraph-io/badger":  "badger",
	"github.com/prometheus/client": "prometheus",
}

// DependencyAnalyzer reads dependency manifests (go.mod, requirements.txt,
// package.json) and emits dependency and framework facts.
type DependencyAnalyzer struct{}

func (*DependencyAnalyzer) Name() string { return "dependencies" }

func (*DependencyAnalyzer) Supports(manifest *scanner.Manifest) bool {
	for _, f := range manifest.Files {
		switch f.Path {
		case "go.mod", "requirements.txt", "package.json":
			return true
		}
		if strings.HasSuffix(f.Path, "/go.mod") {
			return true
		}
	}
	return false
}

func (d *DependencyAnalyzer) Analyze(_ context.Context, manifest *scanner.Manifest) []evidence.Fact {
	var facts []evidence.Fact
	for _, f := range manifest.Files {
		full := filepath.Join(manifest.Root, filepath.FromSlash(f.Path))
		switch {
		case f.Path == "go.mod" || strings.HasSuffix(f.Path, "/go.mod"):
			facts = append(facts, goModFacts(full, f.Path)...)
		case f.Path == "requirements.txt":
			facts = append(facts, requirementsFacts(full, f.Path)...)
		case f.Path == "package.json":
			facts = append(facts, packageJSONFacts(full, f.Path)...)
		}
	}
	return facts
}

// goModFacts parses a go.mod with x/mod and emits direct requirements.
func goModFacts(fullPath, relPath string) []evidence.Fact {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil
	}
	parsed, err := modfile.Parse(relPath, data, nil)
	if err != nil {
		return nil
	}

	var facts []evidence.Fact
	if parsed.Module != nil {
		facts = append(facts, evidence.Fact{
			Kind:       evidence.KindStructure,
			Name:       parsed.Module.Mod.Path,
			Attributes: map[string]string{"role": "module", "source": relPath},
		})
	}
	if parsed.Go != nil {
		facts = append(facts, evidence.Fact{
			Kind:       evidence.KindLanguage,
			Name:       "go",
			Attributes: map[string]string{"version": parsed.Go.Version, "source": relPath},
		})
	}
	for _, req := range parsed.Require {
		if req.Indirect {
			continue
		}
		facts = append(facts, dependencyFact(req.Mod.Path, req.Mod.Version, relPath))
	}
	return facts
}

// requirementsFacts parses a pip requirements file line by line.
func requirementsFacts(fullPath, relPath string) []evidence.Fact {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil
	}
	var facts []evidence.Fact
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name, version := splitRequirement(line)
		if name == "" {
			continue
		}
		facts = append(facts, dependencyFact(strings.ToLower(name), version, relPath))
	}
	return facts
}

// packageJSONFacts reads the dependencies map of a package.json.
func packageJSONFacts(fullPath, relPath string) []evidence.Fact {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil
	}
	var pkg struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	names := make([]string, 0, len(pkg.Dependencies))
	for name := range pkg.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var facts []evidence.Fact
	for _, name := range names {
		facts = append(facts, dependencyFact(name, pkg.Dependencies[name], relPath))
	}
	return facts
}

func dependencyFact(name, version, source string) evidence.Fact {
	fact := evidence.Fact{
		Kind: evidence.KindDependency,
		Name: name,
		Attributes: map[string]string{
			"source": source,
		},
	}
	if version != "" {
		fact.Attributes["version"] = version
	}
	return fact
}

// FrameworkFacts derives framework facts from dependency facts.
func FrameworkFacts(facts []evidence.Fact) []evidence.Fact {
	var frameworks []evidence.Fact
	seen := make(map[string]bool)
	for _, fact := range facts {
		if fact.Kind != evidence.KindDependency {
			continue
		}
		framework, ok := wellKnownFrameworks[fact.Name]
		if !ok {
			for prefix, fw := range wellKnownFrameworks {
				if strings.HasPrefix(fact.Name, prefix) {
					framework, ok = fw, true
					break
				}
			}
		}
		if !ok || seen[framework] {
			continue
		}
		seen[framework] = true
		frameworks = append(frameworks, evidence.Fact{
			Kind:       evidence.KindFramework,
			Name:       framework,
			Attributes: map[string]string{"via": fact.Name},
		})
	}
	sort.Slice(frameworks, func(i, j int) bool { return frameworks[i].Name < frameworks[j].Name })
	return frameworks
}

// splitRequirement splits "name==1.2" / "name>=1.2" / "name" style lines.
func splitRequirement(line string) (name, version string) {
	for _, op := range []string{"==", ">=", "<=", "~=", ">", "<"} {
		if idx := strings.Index(line, op); idx >= 0 {
			return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+len(op):])
		}
	}
	// Strip extras like "uvicorn[standard]".
	if idx := strings.Index(line, "["); idx >= 0 {
		return strings.TrimSpace(line[:idx]), ""
	}
	return line, ""
}
