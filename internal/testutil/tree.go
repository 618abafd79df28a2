// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// NewTree creates the files of layout under a fresh temporary directory and
// returns that directory. Keys are slash separated paths; a key ending in "/"
// creates an empty directory.
//
//	root := testutil.NewTree(t, map[string]string{
//	    "cnf/build.bnd": "",
//	    "app/bnd.bnd":   "-dependson: core",
//	    "cnf/ext/":      "",
//	})
func NewTree(t testing.TB, layout map[string]string) string {
	t.Helper()
	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	AddTree(t, root, layout)
	return root
}

// AddTree creates the files of layout under root.
func AddTree(t testing.TB, root string, layout map[string]string) {
	t.Helper()
	paths := make([]string, 0, len(layout))
	for p := range layout {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if strings.HasSuffix(p, "/") {
			MustMkdirAll(t, full, 0o755)
			continue
		}
		WriteFile(t, full, layout[p])
	}
}

// WriteJar writes a zip archive holding entries to path. The entries are
// written in name order, and manifest, when not empty, is stored as
// META-INF/MANIFEST.MF ahead of them.
func WriteJar(t testing.TB, path, manifest string, entries map[string]string) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path), 0o755)

	var buf strings.Builder
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s to %s: %v", name, path, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s to %s: %v", name, path, err)
		}
	}
	if manifest != "" {
		write("META-INF/MANIFEST.MF", manifest)
	}
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		write(n, entries[n])
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", path, err)
	}
	WriteFile(t, path, buf.String())
}
