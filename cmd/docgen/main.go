// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command docgen keeps a repository's README grounded in its code.
//
// Usage:
//
//	# Build or refresh the evidence index
//	docgen index
//
//	# Regenerate the sections invalidated by specific files
//	docgen update --changed app/main.py --changed requirements.txt
//
//	# Plan from the git diff against a base ref
//	docgen update --since origin/main
//
//	# Regenerate everything
//	docgen update --all
//
//	# Run the HTTP API, rebuilding the README on file changes
//	docgen serve --watch
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/docgen/pkg/logging"
	"github.com/AleutianAI/docgen/services/docgen/config"
	"github.com/AleutianAI/docgen/services/docgen/orchestrator"
	"github.com/AleutianAI/docgen/services/docgen/render"
)

var (
	repoFlag    string
	verboseFlag bool

	rootCmd = &cobra.Command{
		Use:   "docgen",
		Short: "Grounded README generation for code repositories",
		Long: `docgen maintains a README whose every section is regenerated only when
the code it describes changes, and whose every sentence is validated
against evidence extracted from the repository.`,
		SilenceUsage: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&repoFlag, "repo", "r", ".", "repository root")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging")
}

// newLogger builds the CLI logger per the verbose flag.
func newLogger() *logging.Logger {
	level := logging.LevelInfo
	if verboseFlag {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{Level: level, Service: "docgen"})
}

// repoRoot resolves the --repo flag to an absolute path.
func repoRoot() (string, error) {
	root, err := filepath.Abs(repoFlag)
	if err != nil {
		return "", fmt.Errorf("resolving repo root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("repo root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repo root %s is not a directory", root)
	}
	return root, nil
}

// buildPipeline loads config and assembles the pipeline for the repo.
func buildPipeline(logger *logging.Logger) (*orchestrator.Pipeline, config.Config, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, cfg, err
	}

	var renderer render.Renderer
	if cfg.Renderer == "llm" {
		renderer, err = render.NewLLMRenderer(cfg.LLM, logger.Slog())
		if err != nil {
			return nil, cfg, fmt.Errorf("llm renderer: %w", err)
		}
	}

	pipeline, err := orchestrator.New(root, cfg, renderer, logger.Slog())
	if err != nil {
		return nil, cfg, err
	}
	return pipeline, cfg, nil
}
