// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scanner walks a repository and produces the file manifest that
// feeds analyzers and the evidence store.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/docgen/services/docgen/plan"
)

// Default patterns for files worth scanning. Binary artifacts, vendored
// trees, and VCS internals are excluded up front.
var (
	DefaultExcludes = []string{
		".git/",
		".docgen/",
		"vendor/",
		"node_modules/",
		"__pycache__/",
		"**/*.min.js",
		"**/*.lock",
	}

	// MaxFileSize caps what the scanner will hash and index. Anything
	// bigger is almost certainly generated or binary.
	MaxFileSize int64 = 1 << 20
)

// languageByExt maps file extensions to language names.
var languageByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".sh":   "shell",
}

// Scanner builds repository manifests.
//
// Thread Safety: Safe for concurrent use; Scan holds no shared state.
type Scanner struct {
	excludes []string
}

// New creates a scanner. Extra exclude patterns are appended to the
// defaults.
func New(extraExcludes ...string) *Scanner {
	return &Scanner{excludes: append(append([]string{}, DefaultExcludes...), extraExcludes...)}
}

// Scan walks root and returns the manifest, sorted by path.
//
// Outputs:
//
//	*Manifest - Files with size, language, role, and content hash.
//	error - Non-nil on unreadable root or cancellation. Individual
//	        unreadable files are skipped, not fatal.
func (s *Scanner) Scan(ctx context.Context, root string) (*Manifest, error) {
	if ctx == nil {
		return nil, fmt.Errorf("scanner: nil context")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	manifest := &Manifest{Root: absRoot}
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if s.excluded(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > MaxFileSize {
			return nil
		}
		hash, err := hashFile(path)
		if err != nil {
			return nil
		}
		manifest.Files = append(manifest.Files, FileMeta{
			Path:     rel,
			Size:     info.Size(),
			Language: languageByExt[strings.ToLower(filepath.Ext(rel))],
			Role:     classifyRole(rel),
			Hash:     hash,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", absRoot, err)
	}

	sort.Slice(manifest.Files, func(i, j int) bool {
		return manifest.Files[i].Path < manifest.Files[j].Path
	})
	return manifest, nil
}

func (s *Scanner) excluded(rel string, isDir bool) bool {
	probe := rel
	if isDir {
		probe += "/"
	}
	for _, pattern := range s.excludes {
		if plan.MatchPattern(pattern, rel) || plan.MatchPattern(pattern, probe) {
			return true
		}
	}
	return false
}

// classifyRole assigns a Role from path conventions.
func classifyRole(rel string) Role {
	base := strings.ToLower(filepath.Base(rel))
	switch {
	case base == "license" || base == "license.txt" || base == "license.md" || base == "notice.txt":
		return RoleLicense
	case base == "dockerfile" || base == "makefile" || base == "justfile" ||
		strings.HasSuffix(base, ".mk") || strings.HasPrefix(rel, ".github/workflows/"):
		return RoleBuild
	case strings.HasSuffix(base, ".tf") || strings.HasPrefix(rel, "deploy/") ||
		strings.HasPrefix(rel, "infra/") || strings.HasPrefix(rel, "k8s/"):
		return RoleInfra
	case strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml") ||
		strings.HasSuffix(base, ".toml") || strings.HasSuffix(base, ".ini") ||
		strings.HasSuffix(base, ".env.example"):
		return RoleConfig
	case strings.HasSuffix(base, ".md") || strings.HasSuffix(base, ".rst") ||
		strings.HasPrefix(rel, "docs/"):
		return RoleDocs
	default:
		if languageByExt[filepath.Ext(base)] != "" {
			return RoleSource
		}
		return RoleOther
	}
}

// hashFile returns the lowercase hex SHA-256 of a file's content.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashText returns the lowercase hex SHA-256 of a string, matching
// hashFile for identical content.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
