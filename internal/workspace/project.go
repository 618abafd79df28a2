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
	"sync"

	"github.com/bndkit/bndkit/pkg/header"
	"github.com/bndkit/bndkit/pkg/props"
)

// Project is a directory of a workspace with a definition file. Its
// properties inherit from the workspace.
type Project struct {
	ws      *Workspace
	name    string
	base    string
	defFile string
	props   *props.Processor

	mu        sync.Mutex
	valid     bool
	depsDone  bool
	dependsOn []*Project
}

// NewProject creates a project in dir using defFile as definition file. Use
// Workspace.GetProject for projects following the default layout.
func NewProject(ws *Workspace, dir, defFile string) *Project {
	if defFile == "" {
		defFile = DefaultProjectFile
	}
	return newProject(ws, dir, defFile)
}

func newProject(ws *Workspace, dir, defFile string) *Project {
	p := &Project{
		ws:      ws,
		name:    filepath.Base(dir),
		base:    dir,
		defFile: defFile,
		props:   props.New(ws.props, dir),
	}
	p.load()
	return p
}

func (p *Project) load() {
	p.props.ClearDiagnostics()
	err := p.props.LoadFile(filepath.Join(p.base, p.defFile))
	info, statErr := os.Stat(p.base)
	valid := err == nil && statErr == nil && info.IsDir()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		p.props.Warning("No definition file %s in %s", p.defFile, p.base)
	case err != nil:
		p.props.Warning("invalid definition file: %v", err)
	case statErr != nil || !info.IsDir():
		p.props.Warning("project base %s is not a directory", p.base)
	}

	p.mu.Lock()
	p.valid = valid
	p.depsDone = false
	p.dependsOn = nil
	p.mu.Unlock()
}

// Name returns the project name, the base name of its directory.
func (p *Project) Name() string { return p.name }

// Base returns the project directory.
func (p *Project) Base() string { return p.base }

// DefinitionFile returns the path of the definition file.
func (p *Project) DefinitionFile() string { return filepath.Join(p.base, p.defFile) }

// Workspace returns the owning workspace.
func (p *Project) Workspace() *Workspace { return p.ws }

// Properties returns the project property scope.
func (p *Project) Properties() *props.Processor { return p.props }

// IsValid reports whether the project directory exists and its definition
// file was read without errors.
func (p *Project) IsValid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valid
}

// Get returns the expanded property key.
func (p *Project) Get(key string) string { return p.props.Get(key) }

// Flattened returns all visible properties, expanded in the project scope.
func (p *Project) Flattened() map[string]string { return p.props.Flattened() }

// Errors returns the errors recorded on the project.
func (p *Project) Errors() []string { return p.props.Errors() }

// Warnings returns the warnings recorded on the project.
func (p *Project) Warnings() []string { return p.props.Warnings() }

// PropertiesChanged re-reads the definition file and forgets the resolved
// dependencies.
func (p *Project) PropertiesChanged() {
	p.load()
}

// Refresh re-reads the definition file when it changed and reports whether
// it did.
func (p *Project) Refresh() bool {
	if !p.props.Changed() {
		return false
	}
	p.PropertiesChanged()
	return true
}

// DependsOn returns the projects this project depends on: the -dependson
// clauses followed by the -buildpath clauses with version=project. Names
// that do not resolve are recorded as warnings.
func (p *Project) DependsOn() ([]*Project, error) {
	p.mu.Lock()
	if p.depsDone {
		deps := slices.Clone(p.dependsOn)
		p.mu.Unlock()
		return deps, nil
	}
	p.mu.Unlock()

	deps, err := p.resolveDependsOn()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dependsOn = deps
	p.depsDone = true
	return slices.Clone(deps), nil
}

func (p *Project) resolveDependsOn() ([]*Project, error) {
	dependson, err := header.Parse(p.Get("-dependson"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: -dependson: %w", ErrMalformedProperty, p.name, err)
	}
	buildpath, err := header.Parse(p.Get("-buildpath"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: -buildpath: %w", ErrMalformedProperty, p.name, err)
	}

	names := dependson.Keys()
	for _, c := range buildpath {
		if v, _ := c.Attrs.Get("version"); v == "project" {
			names = append(names, c.Key)
		}
	}

	var deps []*Project
	for _, n := range names {
		dep, err := p.ws.GetProject(n)
		if err != nil {
			return nil, err
		}
		if dep == nil {
			p.props.Warning("No such project %s on -dependson or -buildpath", n)
			continue
		}
		if dep == p || slices.Contains(deps, dep) {
			continue
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// Trace logs a debug message when -runtrace or -trace is set.
func (p *Project) Trace(format string, args ...any) {
	if p.props.IsTrue("-runtrace") || p.props.IsTrue("-trace") {
		slog.Debug(fmt.Sprintf(format, args...), "project", p.name)
	}
}

func (p *Project) String() string {
	return p.name
}
