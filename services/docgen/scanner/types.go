// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scanner

// Role classifies what a file is for. Roles drive which README sections a
// file's text may ground and which analyzers care about it.
type Role string

const (
	RoleSource  Role = "src"
	RoleDocs    Role = "docs"
	RoleConfig  Role = "config"
	RoleBuild   Role = "build"
	RoleInfra   Role = "infra"
	RoleLicense Role = "license"
	RoleOther   Role = "other"
)

// FileMeta is the scanner's record for one repository file.
type FileMeta struct {
	// Path is repo-relative with forward slashes.
	Path string `json:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Language is the detected language ("go", "python", ...) or empty.
	Language string `json:"language,omitempty"`

	// Role classifies the file.
	Role Role `json:"role"`

	// Hash is the lowercase hex SHA-256 of the content.
	Hash string `json:"hash"`
}

// Manifest is the normalized view of the repository handed to analyzers
// and the evidence indexer.
type Manifest struct {
	// Root is the absolute repository root.
	Root string `json:"root"`

	// Files lists every scanned file, sorted by Path.
	Files []FileMeta `json:"files"`
}

// Lookup returns the FileMeta for a path, if present.
func (m *Manifest) Lookup(path string) (FileMeta, bool) {
	for _, f := range m.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileMeta{}, false
}

// HasLanguage reports whether any scanned file is in the given language.
func (m *Manifest) HasLanguage(language string) bool {
	for _, f := range m.Files {
		if f.Language == language {
			return true
		}
	}
	return false
}
