// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/bndkit/bndkit/internal/testutil"
)

func TestNewWorkspace_NoBuildFile(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{"cnf/": ""})
	if !slices.ContainsFunc(ws.Warnings(), func(w string) bool { return strings.HasPrefix(w, "No Build File in ") }) {
		t.Errorf("expected a missing build file warning, got %v", ws.Warnings())
	}
	if len(ws.Errors()) != 0 {
		t.Errorf("a missing build file is not an error: %v", ws.Errors())
	}
	if !ws.IsOffline() {
		t.Error("a new workspace should be offline")
	}
}

func TestNewWorkspace_BndPreferred(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"bnd/build.bnd": "from=bnd",
		"cnf/build.bnd": "from=cnf",
	})
	if ws.BuildDir() != join(ws.Root(), "bnd") {
		t.Errorf("BuildDir() = %s", ws.BuildDir())
	}
	if got := ws.Get("from"); got != "bnd" {
		t.Errorf("from = %q", got)
	}
}

func TestNewWorkspace_ExtIncludes(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"cnf/build.bnd":       "shared=build",
		"cnf/ext/repos.bnd":   "shared=ext\nrepo.count=2",
		"cnf/ext/java.bnd":    "javac.source=1.8",
		"cnf/ext/ignored.txt": "skipped=yes",
		"cnf/ext/broken.bnd/": "",
	})
	if got := ws.Get("shared"); got != "build" {
		t.Errorf("shared = %q, ext files must not override build.bnd", got)
	}
	if got := ws.Get("repo.count"); got != "2" {
		t.Errorf("repo.count = %q", got)
	}
	if _, ok := ws.Properties().Lookup("skipped"); ok {
		t.Error("only .bnd files are included")
	}
	scope, ok := ws.Properties().Scope("ext.repos")
	if !ok || !maps.Equal(scope, map[string]string{"shared": "ext", "repo.count": "2"}) {
		t.Errorf("Scope(ext.repos) = %v, %v", scope, ok)
	}
	if got := ws.Properties().ScopeNames(); !slices.Equal(got, []string{"ext.java", "ext.repos"}) {
		t.Errorf("ScopeNames() = %v", got)
	}
	if !slices.ContainsFunc(ws.Warnings(), func(w string) bool { return strings.Contains(w, "broken.bnd") }) {
		t.Errorf("an unreadable ext file should be a warning, got %v", ws.Warnings())
	}
}

func TestWorkspace_Refresh(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"cnf/build.bnd": "deps=b",
		"a/bnd.bnd":     "-dependson: ${deps}",
		"b/bnd.bnd":     "",
		"c/bnd.bnd":     "",
	})
	a := mustProject(t, ws, "a")
	if deps, _ := a.DependsOn(); !slices.Equal(names(deps), []string{"b"}) {
		t.Fatalf("DependsOn() = %v", names(deps))
	}
	if ws.Refresh() {
		t.Error("Refresh without changes should report false")
	}

	touch(t, join(ws.BuildDir(), BuildFile), "deps=c")
	if !ws.Refresh() {
		t.Fatal("Refresh should report the change")
	}
	if got := ws.Get("deps"); got != "c" {
		t.Errorf("deps = %q", got)
	}
	if deps, _ := a.DependsOn(); !slices.Equal(names(deps), []string{"c"}) {
		t.Errorf("cached project should see the change, DependsOn() = %v", names(deps))
	}
}

func TestWorkspace_RefreshNewExtFile(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{"cnf/build.bnd": ""})
	testutil.WriteFile(t, join(ws.BuildDir(), "ext", "late.bnd"), "late=yes")
	if !ws.Refresh() {
		t.Fatal("a new ext file should trigger a refresh")
	}
	if got := ws.Get("late"); got != "yes" {
		t.Errorf("late = %q", got)
	}
}

func TestWorkspace_Plugins(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"cnf/build.bnd": "-plugin: aQute.lib.deployer.FileRepo;name=Local;location=${workspace}/cnf/repo, " +
			"aQute.bnd.deployer.repository.FixedIndexedRepo;name=Remote, " +
			"aQute.lib.deployer.FileRepo;name=Broken",
	})
	var got []string
	for _, r := range ws.Repositories() {
		got = append(got, r.Name())
	}
	if !slices.Equal(got, []string{"cache", "Local"}) {
		t.Errorf("Repositories() = %v", got)
	}
	if !slices.ContainsFunc(ws.Warnings(), func(w string) bool { return strings.Contains(w, "FixedIndexedRepo") }) {
		t.Errorf("expected an unknown plugin warning, got %v", ws.Warnings())
	}
	if !slices.ContainsFunc(ws.Errors(), func(e string) bool { return strings.Contains(e, "no location") }) {
		t.Errorf("expected a missing location error, got %v", ws.Errors())
	}
	if s := ws.CacheRepository().String(); s != "bnd-cache" {
		t.Errorf("cache String() = %q", s)
	}
}

func TestWorkspace_Commands(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{"cnf/build.bnd": ""})
	var ran string
	ws.AddCommand("Build", ActionFunc(func(p *Project, action string) error {
		ran = action
		return nil
	}))
	ws.AddCommand("Clean", ActionFunc(func(*Project, string) error { return nil }))
	ws.RemoveCommand("Clean")

	all := map[string]Action{}
	ws.FillActions(all)
	if len(all) != 1 {
		t.Fatalf("FillActions() = %v", all)
	}
	if err := all["Build"].Execute(nil, "build"); err != nil || ran != "build" {
		t.Errorf("Execute() = %v, ran %q", err, ran)
	}
}
