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
)

var (
	indexForceFlag bool

	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the evidence store without touching the README",
		RunE:  runIndex,
	}
)

func init() {
	indexCmd.Flags().BoolVar(&indexForceFlag, "force", false, "rebuild the store from scratch")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Close()

	pipeline, _, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	summary, err := pipeline.Index(cmd.Context(), indexForceFlag)
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d files, %d facts", summary.Files, summary.Facts)
	if summary.Rebuilt {
		fmt.Print(" (store rebuilt)")
	}
	fmt.Println()
	return nil
}
