// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bndkit/bndkit/internal/config"
	"github.com/bndkit/bndkit/internal/testutil"
	"github.com/bndkit/bndkit/internal/workspace"
)

const waitTimeout = 5 * time.Second

// recorder collects batches delivered to OnChange.
type recorder struct {
	mu      sync.Mutex
	batches [][]string
	notify  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.batches = append(r.batches, changed)
	r.mu.Unlock()
	r.notify <- struct{}{}
	return nil
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		out = append(out, b...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a batch")
	}
}

// start runs w until the test ends.
func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
}

func TestWatcher_DebouncesBatch(t *testing.T) {
	t.Parallel()

	root := testutil.NewTree(t, map[string]string{"p/": ""})
	rec := newRecorder()
	w, err := New(Config{Root: root, Debounce: 150 * time.Millisecond, OnChange: rec.onChange})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start(t, w)

	for _, name := range []string{"a.bnd", "p/b.bnd", "p/c.bnd"} {
		testutil.WriteFile(t, filepath.Join(root, name), "x")
		time.Sleep(10 * time.Millisecond)
	}
	rec.wait(t)

	want := []string{join(root, "a.bnd"), join(root, "p", "b.bnd"), join(root, "p", "c.bnd")}
	if got := rec.all(); !slices.Equal(got, want) {
		t.Errorf("changed = %v, want %v", got, want)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.batches) != 1 {
		t.Errorf("got %d batches, want 1", len(rec.batches))
	}
}

func TestWatcher_IgnoresBuildOutput(t *testing.T) {
	t.Parallel()

	root := testutil.NewTree(t, map[string]string{
		"p/bin/":       "",
		"p/generated/": "",
		"cnf/cache/":   "",
		"tmp/":         "",
	})
	rec := newRecorder()
	w, err := New(Config{Root: root, Ignore: []string{"tmp/**"}, Debounce: 50 * time.Millisecond, OnChange: rec.onChange})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start(t, w)

	for _, name := range []string{"p/bin/A.class", "p/generated/p.jar", "cnf/cache/x.jar", "tmp/scratch", "p/bnd.bnd"} {
		testutil.WriteFile(t, filepath.Join(root, name), "x")
	}
	rec.wait(t)
	time.Sleep(100 * time.Millisecond)

	if got := rec.all(); !slices.Equal(got, []string{join(root, "p", "bnd.bnd")}) {
		t.Errorf("changed = %v, want only p/bnd.bnd", got)
	}
}

func TestWatcher_Patterns(t *testing.T) {
	t.Parallel()

	root := testutil.NewTree(t, map[string]string{"p/": ""})
	rec := newRecorder()
	w, err := New(Config{Root: root, Patterns: []string{"**/*.bnd"}, Debounce: 50 * time.Millisecond, OnChange: rec.onChange})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start(t, w)

	testutil.WriteFile(t, filepath.Join(root, "p", "notes.txt"), "x")
	testutil.WriteFile(t, filepath.Join(root, "p", "bnd.bnd"), "x")
	rec.wait(t)

	if got := rec.all(); !slices.Equal(got, []string{join(root, "p", "bnd.bnd")}) {
		t.Errorf("changed = %v", got)
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	t.Parallel()

	root := testutil.NewTree(t, map[string]string{"cnf/": ""})
	rec := newRecorder()
	w, err := New(Config{Root: root, Debounce: 100 * time.Millisecond, OnChange: rec.onChange})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start(t, w)

	testutil.MustMkdirAll(t, filepath.Join(root, "q"), 0o755)
	rec.wait(t)
	testutil.WriteFile(t, filepath.Join(root, "q", "bnd.bnd"), "x")

	deadline := time.After(waitTimeout)
	for !slices.Contains(rec.all(), join(root, "q", "bnd.bnd")) {
		select {
		case <-rec.notify:
		case <-deadline:
			t.Fatalf("change in new directory not reported: %v", rec.all())
		}
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := w.Run(ctx); err == nil {
		t.Error("second Run should fail")
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	got := DefaultIgnores()
	for _, want := range []string{"**/.git/**", "**/generated/**", "**/bin/**", "**/cache/**"} {
		if !slices.Contains(got, want) {
			t.Errorf("DefaultIgnores() lacks %s", want)
		}
	}
	got[0] = "changed"
	if DefaultIgnores()[0] == "changed" {
		t.Error("DefaultIgnores should return a copy")
	}

	w := &Watcher{ignores: defaultIgnores}
	tests := map[string]bool{
		"p/bin":             true,
		"p/generated/p.jar": true,
		".git/HEAD":         true,
		"p/src/A.java":      false,
		"cnf/build.bnd":     false,
	}
	for rel, want := range tests {
		if got := w.ignoredDir(rel) || w.ignored(rel); got != want {
			t.Errorf("ignored(%s) = %v, want %v", rel, got, want)
		}
	}
}

func TestForWorkspace(t *testing.T) {
	t.Parallel()

	root := testutil.NewTree(t, map[string]string{
		"cnf/build.bnd": "greeting=hello",
		"p/bnd.bnd":     "",
	})
	ws, err := workspace.NewRegistry(workspace.WithSettings(config.Empty())).Get(root)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}

	var (
		mu      sync.Mutex
		events  []string
		changed []string
	)
	signaled := make(chan struct{}, 4)
	ws.AddListener(&workspace.ListenerFuncs{
		OnBegin: func() error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, "begin")
			return nil
		},
		OnChanged: func(path string) error {
			mu.Lock()
			defer mu.Unlock()
			changed = append(changed, path)
			return nil
		},
		OnEnd: func() error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, "end")
			return nil
		},
		OnSignal: func(context.Context, *workspace.Workspace) error {
			select {
			case signaled <- struct{}{}:
			default:
			}
			return nil
		},
	})

	w, err := ForWorkspace(ws, Config{Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("ForWorkspace: %v", err)
	}
	if w.Root() != root {
		t.Errorf("Root() = %s, want %s", w.Root(), root)
	}
	start(t, w)

	build := filepath.Join(root, "cnf", "build.bnd")
	testutil.WriteFile(t, build, "greeting=bonjour")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(build, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case <-signaled:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the workspace signal")
	}

	if got := ws.Get("greeting"); got != "bonjour" {
		t.Errorf("greeting = %q, want the refreshed value", got)
	}
	if ws.IsOffline() {
		t.Error("a reported change should bring the workspace online")
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(changed, build) {
		t.Errorf("changed = %v, want %s", changed, build)
	}
	if len(events) < 2 || events[0] != "begin" || events[1] != "end" {
		t.Errorf("events = %v, want begin/end pairs", events)
	}
}

func join(root string, parts ...string) string {
	return filepath.Join(append([]string{root}, parts...)...)
}
