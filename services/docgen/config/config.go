// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads docgen configuration with priority env > file >
// defaults.
//
// The file is .docgen.yaml at the repository root. Every field has a
// working default so a repo with no config file gets a sensible pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/plan"
	"github.com/AleutianAI/docgen/services/docgen/render"
	"github.com/AleutianAI/docgen/services/docgen/validation"
)

// DefaultFileName is the config file looked up at the repo root.
const DefaultFileName = ".docgen.yaml"

// DefaultStateDir is the docgen working directory inside the repo.
const DefaultStateDir = ".docgen"

// RetrieverConfig tunes evidence retrieval.
type RetrieverConfig struct {
	// TopK is how many chunks each section receives.
	TopK int `yaml:"top_k" validate:"gte=1,lte=50"`
}

// ServerConfig tunes the HTTP service.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `yaml:"addr" validate:"required"`
}

// WatchConfig tunes continuous mode.
type WatchConfig struct {
	// DebounceSeconds is how long the watcher coalesces change bursts.
	DebounceSeconds int `yaml:"debounce_seconds" validate:"gte=1,lte=600"`
}

// Config is the full docgen configuration.
type Config struct {
	// ReadmePath is the managed document, relative to the repo root.
	ReadmePath string `yaml:"readme_path" validate:"required"`

	// StateDir holds the evidence store and run reports, relative to
	// the repo root.
	StateDir string `yaml:"state_dir" validate:"required"`

	// Sections is the canonical section order for the document.
	Sections []string `yaml:"sections" validate:"min=1,unique"`

	// Rules map changed paths to invalidated sections, in order.
	Rules []plan.Rule `yaml:"rules" validate:"min=1"`

	// Excludes are extra scanner exclusion patterns on top of the
	// built-in ones (vendor dirs, lockfiles, the state dir itself).
	Excludes []string `yaml:"excludes"`

	// Renderer selects the section renderer.
	Renderer string `yaml:"renderer" validate:"oneof=llm fallback"`

	Retriever RetrieverConfig        `yaml:"retriever"`
	Validator validation.Config      `yaml:"validator"`
	Chunker   evidence.ChunkerConfig `yaml:"chunker"`
	LLM       render.LLMConfig       `yaml:"llm"`
	Server    ServerConfig           `yaml:"server"`
	Watch     WatchConfig            `yaml:"watch"`
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		ReadmePath: "README.md",
		StateDir:   DefaultStateDir,
		Sections:   append([]string(nil), render.DefaultSections...),
		Rules:      DefaultRules(),
		Renderer:   "fallback",
		Retriever:  RetrieverConfig{TopK: 5},
		Validator:  validation.DefaultConfig(),
		Chunker:    evidence.DefaultChunkerConfig(),
		LLM:        render.DefaultLLMConfig(),
		Server:     ServerConfig{Addr: ":8089"},
		Watch:      WatchConfig{DebounceSeconds: 2},
	}
}

// DefaultRules is the shipped section invalidation table. Rule order is
// output order, so broad structural sections come before narrow ones.
func DefaultRules() []plan.Rule {
	return []plan.Rule{
		{SectionKey: "architecture", Patterns: []string{
			"cmd/", "src/", "app/", "services/", "pkg/", "internal/", "lib/",
		}},
		{SectionKey: "features", Patterns: []string{
			"src/", "app/", "lib/", "services/", "plugins/",
		}},
		{SectionKey: "quickstart", Patterns: []string{
			"Makefile", "docker-compose.yml", "docker-compose.yaml", "scripts/",
		}},
		{SectionKey: "configuration", Patterns: []string{
			"config/", ".env.example", "*.yaml", "*.yml", "*.toml", "*.ini",
		}},
		{SectionKey: "build_and_test", Patterns: []string{
			"Makefile", "Dockerfile", "go.mod", "go.sum", "package.json",
			"requirements.txt", "pyproject.toml", ".github/", ".gitlab-ci.yml",
		}},
		{SectionKey: "deployment", Patterns: []string{
			"Dockerfile", "docker-compose.yml", "docker-compose.yaml",
			"k8s/", "deploy/", "terraform/", ".github/",
		}},
		{SectionKey: "license", Patterns: []string{
			"LICENSE", "LICENSE.txt", "LICENSE.md", "NOTICE.txt",
		}},
	}
}

// PlannerExcludes returns the patterns that must never trigger planning:
// the managed document and docgen's own state. This is the feedback-loop
// guard; a run that only changed the README plans nothing.
func (c Config) PlannerExcludes() []string {
	return []string{c.ReadmePath, c.StateDir + "/"}
}

// Load reads configuration for a repository.
//
// Description:
//
//	Starts from Default, overlays .docgen.yaml if present at repoRoot
//	(a missing file is not an error), applies environment overrides,
//	and validates the result.
//
// Inputs:
//
//	repoRoot - Repository root directory.
//
// Outputs:
//
//	Config - The merged configuration.
//	error - Non-nil if the file exists but is invalid, or validation
//	        fails.
func Load(repoRoot string) (Config, error) {
	cfg := Default()

	path := filepath.Join(repoRoot, DefaultFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No config file, defaults apply.
	default:
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	loadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks structural constraints via struct tags, then the
// cross-field rules tags cannot express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	known := make(map[string]struct{}, len(c.Sections))
	for _, key := range c.Sections {
		known[key] = struct{}{}
	}
	for _, rule := range c.Rules {
		if _, ok := known[rule.SectionKey]; !ok {
			return fmt.Errorf("rule targets unknown section %q", rule.SectionKey)
		}
	}
	if _, ok := known[plan.AnchorSection]; !ok {
		return fmt.Errorf("sections must include the anchor section %q", plan.AnchorSection)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("DOCGEN_README_PATH"); v != "" {
		cfg.ReadmePath = v
	}
	if v := os.Getenv("DOCGEN_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("DOCGEN_RENDERER"); v != "" {
		cfg.Renderer = v
	}
	if v := os.Getenv("DOCGEN_VALIDATION_MODE"); v != "" {
		cfg.Validator.Mode = validation.Mode(v)
	}
	if v := os.Getenv("DOCGEN_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("DOCGEN_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("DOCGEN_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DOCGEN_RETRIEVER_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Retriever.TopK = k
		}
	}
}
