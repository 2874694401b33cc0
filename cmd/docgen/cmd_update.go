// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/docgen/services/docgen/gitdiff"
	"github.com/AleutianAI/docgen/services/docgen/orchestrator"
)

var (
	updateChangedFlag []string
	updateSinceFlag   string
	updateAllFlag     bool

	updateCmd = &cobra.Command{
		Use:   "update [paths...]",
		Short: "Regenerate the README sections invalidated by changed files",
		Long: `update plans which README sections are stale given a set of changed
paths, regenerates only those sections, and patches them into the
document in place. Changed paths come from positional arguments, the
--changed flag, or a git diff against --since. With --all (or on first
run, when no README exists) every section is regenerated.`,
		RunE: runUpdate,
	}
)

func init() {
	updateCmd.Flags().StringSliceVar(&updateChangedFlag, "changed", nil, "changed file paths, relative to the repo root")
	updateCmd.Flags().StringVar(&updateSinceFlag, "since", "", "git ref to diff against for changed paths")
	updateCmd.Flags().BoolVar(&updateAllFlag, "all", false, "regenerate every section")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Close()

	pipeline, _, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	ctx := cmd.Context()

	var report *orchestrator.RunReport
	if updateAllFlag {
		report, err = pipeline.UpdateAll(ctx)
	} else {
		changed := make(map[string]struct{})
		for _, path := range args {
			changed[path] = struct{}{}
		}
		for _, path := range updateChangedFlag {
			changed[path] = struct{}{}
		}
		if updateSinceFlag != "" {
			root, rootErr := repoRoot()
			if rootErr != nil {
				return rootErr
			}
			fromGit, diffErr := gitdiff.Diff(ctx, root, updateSinceFlag)
			if diffErr != nil {
				return fmt.Errorf("git diff against %s: %w", updateSinceFlag, diffErr)
			}
			for path := range fromGit {
				changed[path] = struct{}{}
			}
		}
		report, err = pipeline.Update(ctx, changed)
	}
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

// printReport writes a one-screen summary of a run to stdout.
func printReport(report *orchestrator.RunReport) {
	fmt.Printf("strategy: %s\n", report.Strategy)
	for _, key := range report.SectionKeys() {
		section := report.Sections[key]
		status := "ok"
		if section.FellBack {
			status = "fallback"
		}
		fmt.Printf("  %-16s %s\n", key, status)
	}
	if report.DocumentChanged {
		fmt.Println("README updated")
	} else {
		fmt.Println("README unchanged")
	}
}
