// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"weak"

	"github.com/bndkit/bndkit/internal/config"
	"github.com/bndkit/bndkit/internal/issue"
)

type (
	// Registry maps canonical workspace roots to live workspaces. Entries are
	// weak: a workspace nobody references can be reclaimed and is recreated
	// on the next lookup.
	Registry struct {
		mu       sync.Mutex
		entries  map[string]weak.Pointer[Workspace]
		settings func() Settings
	}

	// Option configures a Registry.
	Option func(*Registry)
)

var defaultRegistry = NewRegistry()

// WithSettings makes every workspace of the registry read s instead of the
// user settings file.
func WithSettings(s Settings) Option {
	return func(r *Registry) {
		r.settings = func() Settings { return s }
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]weak.Pointer[Workspace]),
		settings: sync.OnceValue(loadUserSettings),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func loadUserSettings() Settings {
	s, err := config.Load(context.Background(), config.LoadOptions{})
	if err != nil {
		slog.Warn("ignoring user settings", "error", err)
		return config.Empty()
	}
	return s
}

// Get returns the workspace containing dir from the process-wide registry.
func Get(dir string) (*Workspace, error) {
	return defaultRegistry.Get(dir)
}

// ProjectAt returns the project in directory dir, or nil when dir is not a
// valid project of its workspace.
func ProjectAt(dir string) (*Project, error) {
	return defaultRegistry.ProjectAt(dir)
}

// Get returns the workspace containing dir, creating it on first use.
func (r *Registry) Get(dir string) (*Workspace, error) {
	canonical, err := canonicalize(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if removed := r.dropUnder(dir); removed != "" {
				return nil, fmt.Errorf("%w: %s", ErrWorkspaceRemoved, removed)
			}
		}
		return nil, noWorkspaceError(dir, err)
	}
	found, err := Find(canonical)
	if err != nil {
		return nil, noWorkspaceError(dir, err)
	}
	root, err := canonicalize(found)
	if err != nil {
		return nil, noWorkspaceError(dir, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if wp, ok := r.entries[root]; ok {
		if ws := wp.Value(); ws != nil {
			if _, err := os.Stat(root); err != nil {
				delete(r.entries, root)
				return nil, fmt.Errorf("%w: %s", ErrWorkspaceRemoved, root)
			}
			return ws, nil
		}
	}

	ws, err := newWorkspace(root, r.settings())
	if err != nil {
		return nil, err
	}
	r.entries[root] = weak.Make(ws)
	runtime.AddCleanup(ws, r.reclaimed, root)
	slog.Debug("opened workspace", "root", root)
	return ws, nil
}

// ProjectAt returns the project in directory dir, or nil when dir is not a
// valid project of its workspace.
func (r *Registry) ProjectAt(dir string) (*Project, error) {
	abs, err := canonicalize(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}
	ws, err := r.Get(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	return ws.ProjectInDir(abs)
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, wp := range r.entries {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}

func (r *Registry) reclaimed(root string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wp, ok := r.entries[root]; ok && wp.Value() == nil {
		delete(r.entries, root)
	}
}

// dropUnder removes the live entry whose root contains the missing directory
// dir and returns that root.
func (r *Registry) dropUnder(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for root, wp := range r.entries {
		if wp.Value() == nil {
			continue
		}
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			if _, err := os.Stat(root); err != nil {
				delete(r.entries, root)
				return root
			}
		}
	}
	return ""
}

func canonicalize(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func noWorkspaceError(dir string, err error) error {
	if !errors.Is(err, ErrNoWorkspace) {
		err = fmt.Errorf("%w: %w", ErrNoWorkspace, err)
	}
	return issue.About(issue.ScopeWorkspace, dir).
		Doing("open").
		Hint("Run the command inside a workspace, or pass --workspace",
			"A workspace root holds a cnf/ (or bnd/) directory with build.bnd").
		Guide(issue.WorkspaceNotFoundId).
		Wrap(err).
		Err()
}
