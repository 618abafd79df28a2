// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bndkit/bndkit/internal/testutil"
)

type fakeSettings struct {
	values  map[string]string
	public  []byte
	private []byte
}

func (s fakeSettings) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s fakeSettings) PublicKey() []byte  { return s.public }
func (s fakeSettings) PrivateKey() []byte { return s.private }

// openWorkspace creates the layout and opens it in an isolated registry.
func openWorkspace(t *testing.T, layout map[string]string) *Workspace {
	t.Helper()
	root := testutil.NewTree(t, layout)
	return openAt(t, root)
}

func openAt(t *testing.T, dir string) *Workspace {
	t.Helper()
	ws, err := NewRegistry(WithSettings(fakeSettings{})).Get(dir)
	if err != nil {
		t.Fatalf("Get(%s): %v", dir, err)
	}
	return ws
}

// touch rewrites path with content and moves its modification time forward
// so change detection does not depend on timestamp granularity.
func touch(t *testing.T, path, content string) {
	t.Helper()
	testutil.WriteFile(t, path, content)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func mustProject(t *testing.T, ws *Workspace, name string) *Project {
	t.Helper()
	p, err := ws.GetProject(name)
	if err != nil {
		t.Fatalf("GetProject(%s): %v", name, err)
	}
	if p == nil {
		t.Fatalf("GetProject(%s) = nil", name)
	}
	return p
}

func names(ps []*Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func join(root string, parts ...string) string {
	return filepath.Join(append([]string{root}, parts...)...)
}
