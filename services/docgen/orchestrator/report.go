// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AleutianAI/docgen/services/docgen/plan"
	"github.com/AleutianAI/docgen/services/docgen/validation"
)

// reportFileName is the persisted run report inside the state dir.
const reportFileName = "last_run.json"

// SectionReport records the outcome for one regenerated section.
type SectionReport struct {
	// Accepted reports whether the final text passed validation.
	Accepted bool `json:"accepted"`

	// Tier is the evidence tier of the accepted text.
	Tier validation.Tier `json:"tier"`

	// FellBack is true when the primary renderer's output was rejected
	// or errored and the deterministic fallback was substituted.
	FellBack bool `json:"fell_back"`

	// Reason is why the section was planned (matched pattern, bootstrap).
	Reason string `json:"reason"`

	// RenderError holds the primary renderer's error, if any.
	RenderError string `json:"render_error,omitempty"`

	// Issues itemizes the validation failures of the rejected attempt.
	Issues []validation.Issue `json:"issues,omitempty"`
}

// RunReport is the persisted record of one pipeline run.
type RunReport struct {
	// StartedAt and FinishedAt bound the run, UTC.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Strategy is patch or full.
	Strategy plan.Strategy `json:"strategy"`

	// ChangedPaths is the sorted change set the run planned from.
	ChangedPaths []string `json:"changed_paths,omitempty"`

	// Sections maps section keys to their outcomes.
	Sections map[string]SectionReport `json:"sections"`

	// DocumentChanged reports whether the managed document was rewritten.
	DocumentChanged bool `json:"document_changed"`

	// IndexRebuilt reports whether the evidence store was rebuilt from
	// scratch this run.
	IndexRebuilt bool `json:"index_rebuilt"`
}

// FallbackCount returns how many sections fell back this run.
func (r *RunReport) FallbackCount() int {
	n := 0
	for _, section := range r.Sections {
		if section.FellBack {
			n++
		}
	}
	return n
}

// SectionKeys returns the reported section keys, sorted.
func (r *RunReport) SectionKeys() []string {
	keys := make([]string, 0, len(r.Sections))
	for key := range r.Sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// saveReport writes the report atomically into the state dir.
func saveReport(stateDir string, report *RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}
	tmp := filepath.Join(stateDir, reportFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(stateDir, reportFileName)); err != nil {
		return fmt.Errorf("publishing run report: %w", err)
	}
	return nil
}

// LoadReport reads the last persisted run report from the state dir.
func LoadReport(stateDir string) (*RunReport, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, reportFileName))
	if err != nil {
		return nil, err
	}
	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding run report: %w", err)
	}
	return &report, nil
}
