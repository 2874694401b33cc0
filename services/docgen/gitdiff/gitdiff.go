// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gitdiff turns git diffs into the flat changed-path sets the
// impact planner consumes.
package gitdiff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"
)

// gitTimeout bounds the external git invocation.
const gitTimeout = 30 * time.Second

// ChangedPaths parses unified diff text and returns the set of affected
// repo-relative paths.
//
// Description:
//
//	Both sides of each file diff contribute: a rename or delete counts
//	the old path, an add counts the new one, so the planner sees every
//	path whose content moved. The conventional a/ and b/ prefixes are
//	stripped; /dev/null never appears in the output.
//
// Inputs:
//
//	unified - Unified diff text (git diff output).
//
// Outputs:
//
//	map[string]struct{} - Changed paths. Empty for an empty diff.
//	error - Non-nil if the diff text is unparseable.
func ChangedPaths(unified []byte) (map[string]struct{}, error) {
	paths := make(map[string]struct{})
	if len(bytes.TrimSpace(unified)) == 0 {
		return paths, nil
	}
	fileDiffs, err := diff.ParseMultiFileDiff(unified)
	if err != nil {
		return nil, fmt.Errorf("parsing unified diff: %w", err)
	}
	for _, fd := range fileDiffs {
		for _, name := range []string{fd.OrigName, fd.NewName} {
			if path := cleanName(name); path != "" {
				paths[path] = struct{}{}
			}
		}
	}
	return paths, nil
}

// Diff runs "git diff --no-color <base>" in repoRoot and returns the
// changed path set.
//
// Inputs:
//
//	ctx - Context; the git process is killed on cancellation.
//	repoRoot - Repository working directory.
//	base - Diff base (e.g. "HEAD~1", "origin/main"). Empty diffs the
//	       working tree against HEAD.
//
// Outputs:
//
//	map[string]struct{} - Changed paths.
//	error - Non-nil if git fails or the output is unparseable.
func Diff(ctx context.Context, repoRoot, base string) (map[string]struct{}, error) {
	if ctx == nil {
		return nil, fmt.Errorf("gitdiff: nil context")
	}
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	args := []string{"diff", "--no-color"}
	if base != "" {
		args = append(args, base)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git diff %s: %w (%s)", base, err, strings.TrimSpace(stderr.String()))
	}
	return ChangedPaths(stdout.Bytes())
}

// cleanName strips diff path decorations.
func cleanName(name string) string {
	if name == "" || name == "/dev/null" {
		return ""
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}
