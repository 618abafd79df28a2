// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// maxRedirects bounds the number of marker files followed by Find.
const maxRedirects = 16

// MarkerDirs are the names of the build configuration directory, in lookup order.
var MarkerDirs = []string{"bnd", "cnf"}

// Find returns the workspace root for start: the nearest directory, start
// included, that holds a bnd/ or cnf/ directory.
//
// A marker that is a regular file redirects the search. Its trimmed content
// is a path relative to the directory holding the marker, and the search
// continues there.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}

	redirects := 0
	for {
		next, found, err := inspectMarkers(dir)
		if err != nil {
			return "", err
		}
		if found {
			return dir, nil
		}
		if next != "" {
			redirects++
			if redirects > maxRedirects {
				return "", fmt.Errorf("%w: more than %d redirects starting at %s", ErrBadRedirect, maxRedirects, start)
			}
			slog.Debug("following workspace redirect", "from", dir, "to", next)
			dir = next
			continue
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s", ErrNoWorkspace, start)
		}
		slog.Debug("looking for workspace at", "dir", parent)
		dir = parent
	}
}

// inspectMarkers reads the marker entries of dir. It reports found when a marker is
// a directory, or returns the redirect target of the first marker file.
func inspectMarkers(dir string) (next string, found bool, err error) {
	for _, name := range MarkerDirs {
		marker := filepath.Join(dir, name)
		info, err := os.Stat(marker)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", false, fmt.Errorf("inspect %s: %w", marker, err)
		}
		if info.IsDir() {
			return "", true, nil
		}
		target, err := readRedirect(marker)
		if err != nil {
			return "", false, err
		}
		return target, false, nil
	}
	return "", false, nil
}

func readRedirect(marker string) (string, error) {
	data, err := os.ReadFile(marker)
	if err != nil {
		return "", fmt.Errorf("read redirect %s: %w", marker, err)
	}
	rel := strings.TrimSpace(string(data))
	if rel == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrBadRedirect, marker)
	}
	target := rel
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(marker), filepath.FromSlash(rel))
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s points to %s, which is not a directory", ErrBadRedirect, marker, target)
	}
	return filepath.Clean(target), nil
}
