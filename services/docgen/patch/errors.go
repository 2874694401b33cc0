// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patch

import "fmt"

// PatchError reports malformed marker structure in the target document.
//
// It is always fatal: an unbalanced or overlapping marker pair means
// the document's managed regions cannot be identified safely, and a
// silent repair could destroy unmanaged content. The document is left
// untouched.
type PatchError struct {
	// SectionKey is the marker key involved, when identifiable.
	SectionKey string

	// Line is the 1-based line number where the problem was detected.
	Line int

	// Reason describes the structural problem.
	Reason string
}

func (e *PatchError) Error() string {
	if e.SectionKey != "" {
		return fmt.Sprintf("patch: %s (section %q, line %d)", e.Reason, e.SectionKey, e.Line)
	}
	return fmt.Sprintf("patch: %s (line %d)", e.Reason, e.Line)
}
