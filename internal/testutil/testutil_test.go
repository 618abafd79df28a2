// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestNewTree(t *testing.T) {
	t.Parallel()

	root := NewTree(t, map[string]string{
		"cnf/build.bnd": "a=1",
		"cnf/ext/":      "",
		"p/bnd.bnd":     "",
	})

	data, err := os.ReadFile(filepath.Join(root, "cnf", "build.bnd"))
	if err != nil || string(data) != "a=1" {
		t.Errorf("build.bnd = %q, %v", data, err)
	}
	if info, err := os.Stat(filepath.Join(root, "cnf", "ext")); err != nil || !info.IsDir() {
		t.Errorf("cnf/ext should be a directory: %v", err)
	}
}

func TestWriteJar(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lib", "x.jar")
	WriteJar(t, path, "Manifest-Version: 1.0\r\n\r\n", map[string]string{"b.txt": "b", "a.txt": "a"})

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"META-INF/MANIFEST.MF", "a.txt", "b.txt"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}
}
