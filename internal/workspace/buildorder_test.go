// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"slices"
	"testing"

	"github.com/bndkit/bndkit/internal/dag"
)

func TestBuildOrder_Chain(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"cnf/build.bnd": "",
		"A/bnd.bnd":     "-dependson: B",
		"B/bnd.bnd":     "-dependson: C",
		"C/bnd.bnd":     "",
	})
	order, err := ws.BuildOrder()
	if err != nil {
		t.Fatalf("BuildOrder: %v", err)
	}
	if got := names(order); !slices.Equal(got, []string{"C", "B", "A"}) {
		t.Errorf("BuildOrder() = %v, want [C B A]", got)
	}
}

func TestBuildOrder_DependenciesFirst(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"cnf/build.bnd": "",
		"app/bnd.bnd":   "-dependson: web, cli",
		"web/bnd.bnd":   "-buildpath: api;version=project, osgi.core;version=6",
		"cli/bnd.bnd":   "-dependson: impl",
		"impl/bnd.bnd":  "-buildpath: api;version=project\n-dependson: util",
		"util/bnd.bnd":  "-dependson: base",
		"base/bnd.bnd":  "",
		"api/bnd.bnd":   "",
		"solo/bnd.bnd":  "",
	})
	order, err := ws.BuildOrder()
	if err != nil {
		t.Fatalf("BuildOrder: %v", err)
	}
	if len(order) != 8 {
		t.Fatalf("BuildOrder() = %v, want all 8 projects", names(order))
	}
	index := make(map[*Project]int, len(order))
	for i, p := range order {
		if _, dup := index[p]; dup {
			t.Fatalf("%s appears twice", p.Name())
		}
		index[p] = i
	}
	for _, p := range order {
		deps, err := p.DependsOn()
		if err != nil {
			t.Fatalf("DependsOn(%s): %v", p.Name(), err)
		}
		for _, d := range deps {
			if index[d] >= index[p] {
				t.Errorf("%s should precede %s in %v", d.Name(), p.Name(), names(order))
			}
		}
	}
}

func TestBuildOrder_Cycle(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"cnf/build.bnd": "",
		"a/bnd.bnd":     "-dependson: b",
		"b/bnd.bnd":     "-dependson: a",
	})
	_, err := ws.BuildOrder()
	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected a CycleError, got %v", err)
	}
	if !slices.Equal(cycle.Cycle, []string{"a", "b", "a"}) {
		t.Errorf("Cycle = %v", cycle.Cycle)
	}
}

func TestBuildOrderOf(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"cnf/build.bnd": "",
		"A/bnd.bnd":     "-dependson: B",
		"B/bnd.bnd":     "-dependson: C",
		"C/bnd.bnd":     "",
		"D/bnd.bnd":     "-dependson: A",
	})
	order, err := ws.BuildOrderOf(mustProject(t, ws, "A"))
	if err != nil {
		t.Fatalf("BuildOrderOf: %v", err)
	}
	if got := names(order); !slices.Equal(got, []string{"C", "B"}) {
		t.Errorf("BuildOrderOf(A) = %v, want [C B]", got)
	}
}
