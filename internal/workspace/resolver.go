// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bndkit/bndkit/pkg/header"
)

// SearchEntry is a root searched for projects, relative to the workspace,
// and the number of directory levels below it that are searched.
type SearchEntry struct {
	Dir   string
	Depth int
}

var defaultSearch = []SearchEntry{{Dir: ".", Depth: 1}}

// SearchEntries returns the parsed -project-search property.
func (ws *Workspace) SearchEntries() []SearchEntry {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return slices.Clone(ws.searchEntriesLocked())
}

func (ws *Workspace) searchEntriesLocked() []SearchEntry {
	if !ws.searchLoaded {
		ws.searchEntries = ws.parseSearchEntries()
		ws.searchLoaded = true
	}
	return ws.searchEntries
}

// parseSearchEntries reads "dir[;depth=N], ...". A clause without depth
// searches only its root. Malformed values are recorded as errors and the
// default search is used.
func (ws *Workspace) parseSearchEntries() []SearchEntry {
	value, ok := ws.props.Lookup(ProjectSearchKey)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultSearch
	}
	params, err := header.Parse(value)
	if err != nil {
		ws.props.Error("%v: %s: %v", ErrMalformedProperty, ProjectSearchKey, err)
		return defaultSearch
	}
	entries := make([]SearchEntry, 0, len(params))
	for _, c := range params {
		e := SearchEntry{Dir: c.Key}
		if d, ok := c.Attrs.Get("depth"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(d))
			if err != nil || n < 0 {
				ws.props.Error("%v: %s: invalid depth %q for %s", ErrMalformedProperty, ProjectSearchKey, d, c.Key)
				return defaultSearch
			}
			e.Depth = n
		}
		entries = append(entries, e)
	}
	return entries
}

// GetProject returns the project named name, or nil when no valid project
// has that name. A name that does not match a directory falls back to its
// prefixes: a.b.c is looked up as a.b.c, then a.b, then a. Hits and misses
// are cached.
func (ws *Workspace) GetProject(name string) (*Project, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if p, ok := ws.projects[name]; ok {
		return p, nil
	}

	candidates := candidateNames(name)
	for _, c := range candidates[1:] {
		if p := ws.projects[c]; p != nil {
			ws.projects[name] = p
			return p, nil
		}
	}

	entries := ws.searchEntriesLocked()
	for _, c := range candidates {
		for _, e := range entries {
			dir, err := findProject(c, ws.props.File(e.Dir), e.Depth)
			if err != nil {
				return nil, err
			}
			if dir == "" {
				continue
			}
			p := ws.projectAtLocked(dir)
			ws.projects[name] = p
			if p != nil {
				ws.projects[c] = p
			}
			return p, nil
		}
	}

	slog.Debug("project not found", "name", name, "workspace", ws.root)
	ws.projects[name] = nil
	return nil, nil
}

// IsPresent reports whether name resolved to a project before.
func (ws *Workspace) IsPresent(name string) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.projects[name] != nil
}

// CurrentProjects returns the projects resolved so far, sorted by name.
func (ws *Workspace) CurrentProjects() []*Project {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.currentLocked()
}

func (ws *Workspace) currentLocked() []*Project {
	seen := make(map[*Project]bool)
	var out []*Project
	for _, p := range ws.projects {
		if p != nil && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *Project) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// ProjectInDir returns the project in directory dir, or nil when dir holds no
// valid project.
func (ws *Workspace) ProjectInDir(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}
	if !isFile(filepath.Join(abs, DefaultProjectFile)) {
		return nil, nil
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	p := ws.projectAtLocked(abs)
	if p != nil {
		if ws.projects[p.Name()] == nil {
			ws.projects[p.Name()] = p
		}
	}
	return p, nil
}

// AllProjects returns every valid project of the workspace, ordered by
// directory. With -project-search the directories under each search root are
// considered up to the root's depth; otherwise the children of the root.
func (ws *Workspace) AllProjects() ([]*Project, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	var dirs []string
	if _, ok := ws.props.Raw(ProjectSearchKey); ok {
		set := make(map[string]struct{})
		for _, e := range ws.searchEntriesLocked() {
			if err := collectDirs(ws.props.File(e.Dir), e.Depth, set); err != nil {
				return nil, err
			}
		}
		for d := range set {
			dirs = append(dirs, d)
		}
		slices.Sort(dirs)
	} else {
		entries, err := os.ReadDir(ws.root)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		for _, e := range entries {
			if isDirEntry(ws.root, e) {
				dirs = append(dirs, filepath.Join(ws.root, e.Name()))
			}
		}
	}

	var out []*Project
	for _, d := range dirs {
		if !isFile(filepath.Join(d, DefaultProjectFile)) {
			continue
		}
		p := ws.projectAtLocked(d)
		if p == nil {
			continue
		}
		if ws.projects[p.Name()] == nil {
			ws.projects[p.Name()] = p
		}
		out = append(out, p)
	}
	return out, nil
}

// projectAtLocked returns the project instance for dir, creating it on first
// use. Invalid projects yield nil and are read again on the next lookup.
func (ws *Workspace) projectAtLocked(dir string) *Project {
	p, ok := ws.byDir[dir]
	if !ok {
		p = newProject(ws, dir, DefaultProjectFile)
		ws.byDir[dir] = p
	}
	if !p.IsValid() {
		slog.Debug("invalid project", "dir", dir, "warnings", p.Warnings())
		delete(ws.byDir, dir)
		return nil
	}
	return p
}

// candidateNames returns name followed by each prefix obtained by removing
// the last dotted segment.
func candidateNames(name string) []string {
	out := []string{name}
	for {
		i := strings.LastIndexByte(name, '.')
		if i <= 0 {
			return out
		}
		name = name[:i]
		out = append(out, name)
	}
}

// findProject searches dir and up to depth levels below it for a directory
// called name holding a project definition. Children are visited in name
// order and the first match wins.
func findProject(name, dir string, depth int) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("search projects: %w", err)
	}
	if !info.IsDir() {
		return "", nil
	}
	if filepath.Base(dir) == name && isFile(filepath.Join(dir, DefaultProjectFile)) {
		return dir, nil
	}
	if depth <= 0 {
		return "", nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("search projects: %w", err)
	}
	for _, e := range entries {
		if !isDirEntry(dir, e) {
			continue
		}
		found, err := findProject(name, filepath.Join(dir, e.Name()), depth-1)
		if err != nil || found != "" {
			return found, err
		}
	}
	return "", nil
}

// collectDirs adds dir and its sub-directories up to depth levels to set.
func collectDirs(dir string, depth int, set map[string]struct{}) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("list projects: %w", err)
	}
	if !info.IsDir() {
		return nil
	}
	set[filepath.Clean(dir)] = struct{}{}
	if depth <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	for _, e := range entries {
		if isDirEntry(dir, e) {
			if err := collectDirs(filepath.Join(dir, e.Name()), depth-1, set); err != nil {
				return err
			}
		}
	}
	return nil
}

func isDirEntry(parent string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, e.Name()))
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
