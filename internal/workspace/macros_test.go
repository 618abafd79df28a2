// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"encoding/hex"
	"slices"
	"strings"
	"testing"

	"github.com/bndkit/bndkit/internal/repository"
	"github.com/bndkit/bndkit/internal/testutil"
)

// plainRepo is a repository without digest support.
type plainRepo struct{ name string }

func (r plainRepo) Name() string                       { return r.name }
func (r plainRepo) List(string) ([]string, error)      { return nil, nil }
func (r plainRepo) Versions(string) ([]string, error)  { return nil, nil }
func (r plainRepo) Get(string, string) (string, error) { return "", nil }

func openWithSettings(t *testing.T, s Settings) *Workspace {
	t.Helper()
	root := testutil.NewTree(t, map[string]string{"cnf/build.bnd": "user=${global;user.name;nobody}"})
	ws, err := NewRegistry(WithSettings(s)).Get(root)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return ws
}

func TestMacro_Workspace(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{
		"cnf/build.bnd": "",
		"p/bnd.bnd":     "where=${workspace}/p",
	})
	if got := ws.Properties().Expand("${workspace}"); got != ws.Root() {
		t.Errorf("${workspace} = %q", got)
	}
	if got := mustProject(t, ws, "p").Get("where"); got != join(ws.Root(), "p") {
		t.Errorf("projects should inherit ${workspace}, got %q", got)
	}
}

func TestMacro_Global(t *testing.T) {
	t.Parallel()

	ws := openWithSettings(t, fakeSettings{
		values:  map[string]string{"user.name": "ada", "empty": ""},
		public:  []byte{0xca, 0xfe},
		private: []byte{0x01},
	})
	tests := map[string]string{
		"${global;user.name}":        "ada",
		"${global;missing;fallback}": "fallback",
		"${global;missing}":          "",
		"${global;empty;fallback}":   "",
		"${global;key.public}":       "cafe",
		"${global;key.private}":      "01",
		"${user}":                    "ada",
	}
	for in, want := range tests {
		if got := ws.Properties().Expand(in); got != want {
			t.Errorf("Expand(%s) = %q, want %q", in, got, want)
		}
	}

	if got := ws.Properties().Expand("${global}"); got != "${global}" {
		t.Errorf("${global} without a key should stay literal, got %q", got)
	}
	if len(ws.Errors()) == 0 {
		t.Error("usage errors should be recorded")
	}
}

func TestMacro_GlobalDefault(t *testing.T) {
	t.Parallel()

	ws := openWithSettings(t, fakeSettings{})
	if got := ws.Get("user"); got != "nobody" {
		t.Errorf("user = %q", got)
	}
}

func TestMacro_RepoDigests(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{"cnf/build.bnd": ""})
	one := repository.NewFileRepo("one", t.TempDir())
	two := repository.NewFileRepo("two", t.TempDir())
	if _, err := two.Put("x", "1.0.0", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ws.AddRepository(one)
	ws.AddRepository(plainRepo{name: "plain"})
	ws.AddRepository(two)

	hexOf := func(r repository.Repository) string {
		d, err := repository.DigestOf(r)
		if err != nil {
			t.Fatalf("DigestOf(%s): %v", r.Name(), err)
		}
		return hex.EncodeToString(d)
	}

	all := strings.Split(ws.Properties().Expand("${repodigests}"), ",")
	want := []string{hexOf(ws.CacheRepository()), hexOf(one), hexOf(two)}
	if !slices.Equal(all, want) {
		t.Errorf("${repodigests} = %v, want %v", all, want)
	}
	if len(ws.Errors()) != 0 {
		t.Errorf("best-effort digests should not record errors: %v", ws.Errors())
	}

	if got := ws.Properties().Expand("${repodigests;two;one}"); got != hexOf(one)+","+hexOf(two) {
		t.Errorf("${repodigests;two;one} = %q, want repository order", got)
	}

	if got := ws.Properties().Expand("${repodigests;one;plain;nope}"); got != hexOf(one) {
		t.Errorf("${repodigests;one;plain;nope} = %q", got)
	}
	errs := ws.Errors()
	if !slices.ContainsFunc(errs, func(e string) bool { return strings.Contains(e, "plain") }) ||
		!slices.ContainsFunc(errs, func(e string) bool { return strings.Contains(e, "nope") }) {
		t.Errorf("explicit names should report failures, got %v", errs)
	}
}
