// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitdiff

import "testing"

const sampleDiff = `diff --git a/app/main.py b/app/main.py
index 83db48f..bf269f4 100644
--- a/app/main.py
+++ b/app/main.py
@@ -1,3 +1,4 @@
 import os
+import sys

 print("hello")
diff --git a/docs/old.md b/docs/renamed.md
similarity index 90%
rename from docs/old.md
rename to docs/renamed.md
index 83db48f..bf269f4 100644
--- a/docs/old.md
+++ b/docs/renamed.md
@@ -1 +1 @@
-old title
+new title
diff --git a/removed.txt b/removed.txt
deleted file mode 100644
index 83db48f..0000000
--- a/removed.txt
+++ /dev/null
@@ -1 +0,0 @@
-gone
`

func TestChangedPaths(t *testing.T) {
	t.Run("modifications renames and deletions", func(t *testing.T) {
		got, err := ChangedPaths([]byte(sampleDiff))
		if err != nil {
			t.Fatalf("ChangedPaths: %v", err)
		}
		for _, want := range []string{"app/main.py", "docs/old.md", "docs/renamed.md", "removed.txt"} {
			if _, ok := got[want]; !ok {
				t.Errorf("missing %q in %v", want, got)
			}
		}
		if _, ok := got["/dev/null"]; ok {
			t.Error("/dev/null must never appear as a changed path")
		}
	})

	t.Run("empty diff yields empty set", func(t *testing.T) {
		got, err := ChangedPaths(nil)
		if err != nil {
			t.Fatalf("ChangedPaths: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})

	t.Run("new file counts its new path only", func(t *testing.T) {
		added := "diff --git a/new.go b/new.go\n" +
			"new file mode 100644\n" +
			"index 0000000..e69de29\n" +
			"--- /dev/null\n" +
			"+++ b/new.go\n" +
			"@@ -0,0 +1 @@\n" +
			"+package new\n"
		got, err := ChangedPaths([]byte(added))
		if err != nil {
			t.Fatalf("ChangedPaths: %v", err)
		}
		if _, ok := got["new.go"]; !ok || len(got) != 1 {
			t.Errorf("got %v, want exactly {new.go}", got)
		}
	})
}
