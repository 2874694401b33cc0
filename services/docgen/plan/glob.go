// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plan

import (
	"path/filepath"
	"strings"
)

// MatchPattern matches one changed path against one rule pattern.
//
// Patterns come in two flavors:
//   - Prefix: "app/" matches anything under app/ (trailing slash), and a
//     bare name like "Dockerfile" matches exactly or as a path prefix.
//   - Glob: patterns containing *, ? or [ use glob syntax, with **
//     matching across path separators.
//
// Paths are normalized to forward slashes before matching.
func MatchPattern(pattern, path string) bool {
	path = filepath.ToSlash(path)
	pattern = filepath.ToSlash(pattern)

	if strings.ContainsAny(pattern, "*?[") {
		return matchGlob(pattern, path)
	}
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(path, pattern)
	}
	return path == pattern || strings.HasPrefix(path, pattern+"/")
}

// matchGlob matches a path against a glob pattern, with ** support.
func matchGlob(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, path)
	}
	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}
	// A bare "*.py" should also hit nested files.
	matched, _ = filepath.Match(pattern, filepath.Base(path))
	return matched
}

// matchDoublestar handles "prefix/**/suffix" style recursive patterns.
func matchDoublestar(pattern, path string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			return false
		}
		path = strings.TrimPrefix(path, prefix+"/")
	}
	if suffix == "" {
		return true
	}
	if strings.Contains(suffix, "**") {
		// Nested ** in the suffix: match it against every sub-path.
		segments := strings.Split(path, "/")
		for i := range segments {
			if matchDoublestar(suffix, strings.Join(segments[i:], "/")) {
				return true
			}
		}
		return false
	}
	segments := strings.Split(path, "/")
	for i := range segments {
		rest := strings.Join(segments[i:], "/")
		if matched, _ := filepath.Match(suffix, rest); matched {
			return true
		}
	}
	return false
}
