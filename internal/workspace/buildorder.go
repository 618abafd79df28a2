// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"fmt"

	"github.com/bndkit/bndkit/internal/dag"
)

// BuildOrder returns every project of the workspace and the projects they
// depend on, each after its dependencies. A dependency cycle is reported as
// *dag.CycleError naming the projects.
func (ws *Workspace) BuildOrder() ([]*Project, error) {
	all, err := ws.AllProjects()
	if err != nil {
		return nil, err
	}
	return buildOrder(all)
}

// BuildOrderOf returns the projects p depends on, directly or not, in build
// order. p itself is not included.
func (ws *Workspace) BuildOrderOf(p *Project) ([]*Project, error) {
	order, err := buildOrder([]*Project{p})
	if err != nil {
		return nil, err
	}
	out := order[:0]
	for _, q := range order {
		if q != p {
			out = append(out, q)
		}
	}
	return out, nil
}

func buildOrder(roots []*Project) ([]*Project, error) {
	g := dag.New()
	byDir := make(map[string]*Project)

	var visit func(p *Project) error
	visit = func(p *Project) error {
		if _, seen := byDir[p.Base()]; seen {
			return nil
		}
		byDir[p.Base()] = p
		g.AddNode(p.Base())

		deps, err := p.DependsOn()
		if err != nil {
			return fmt.Errorf("dependencies of %s: %w", p.Name(), err)
		}
		for _, d := range deps {
			g.AddEdge(d.Base(), p.Base())
		}
		for _, d := range deps {
			if err := visit(d); err != nil {
				return err
			}
		}
		return nil
	}
	for _, p := range roots {
		if err := visit(p); err != nil {
			return nil, err
		}
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			names := make([]string, len(cycle.Cycle))
			for i, dir := range cycle.Cycle {
				names[i] = byDir[dir].Name()
			}
			return nil, &dag.CycleError{Cycle: names}
		}
		return nil, err
	}

	out := make([]*Project, len(sorted))
	for i, dir := range sorted {
		out[i] = byDir[dir]
	}
	return out, nil
}
