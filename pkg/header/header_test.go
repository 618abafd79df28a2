// SPDX-License-Identifier: MPL-2.0

package header

import (
	"errors"
	"maps"
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		keys  []string
	}{
		{name: "empty", input: "", keys: nil},
		{name: "single", input: "jpm", keys: []string{"jpm"}},
		{name: "search entries", input: "a;depth=2, b", keys: []string{"a", "b"}},
		{name: "shared attributes", input: "a;b;version=1", keys: []string{"a", "b"}},
		{name: "trailing comma", input: "a,", keys: []string{"a"}},
		{name: "quoted key", input: `"x,y";v=1`, keys: []string{"x,y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got := p.Keys(); !slices.Equal(got, tt.keys) && (len(got) != 0 || len(tt.keys) != 0) {
				t.Errorf("Parse(%q).Keys() = %v, want %v", tt.input, got, tt.keys)
			}
		})
	}
}

func TestParse_Attributes(t *testing.T) {
	t.Parallel()

	p, err := Parse(`a;depth=2;version="[1,2)";resolution:=optional, b`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(p))
	}

	a := p[0]
	if v, _ := a.Attrs.Get("depth"); v != "2" {
		t.Errorf("depth = %q, want 2", v)
	}
	if v, _ := a.Attrs.Get("version"); v != "[1,2)" {
		t.Errorf("version = %q, want [1,2)", v)
	}
	if v, _ := a.Attrs.Get("resolution:"); v != "optional" {
		t.Errorf("resolution directive = %q, want optional", v)
	}
	if got := a.Attrs.Names(); !slices.Equal(got, []string{"depth", "version", "resolution:"}) {
		t.Errorf("attribute order = %v", got)
	}
	if p[1].Attrs.Len() != 0 {
		t.Errorf("clause b should have no attributes, got %v", p[1].Attrs.Names())
	}
	if got := p[1].Attrs.GetOr("depth", "0"); got != "0" {
		t.Errorf("GetOr default = %q, want 0", got)
	}
}

func TestParse_UnterminatedQuote(t *testing.T) {
	t.Parallel()

	_, err := Parse(`a;version="1.0`)
	if !errors.Is(err, ErrUnterminatedQuote) {
		t.Fatalf("expected ErrUnterminatedQuote, got %v", err)
	}
}

func TestParameters_ContainsAndString(t *testing.T) {
	t.Parallel()

	p := MustParse("jpm;x=1, other")
	if !p.Contains("jpm") {
		t.Error("expected Contains(jpm)")
	}
	if p.Contains("missing") {
		t.Error("unexpected Contains(missing)")
	}
	if got := p.String(); got != "jpm;x=1,other" {
		t.Errorf("String() = %q", got)
	}

	sys := MustParse(`org.osgi.framework;version="1.7 .0"`)
	if got := sys.String(); got != `org.osgi.framework;version="1.7 .0"` {
		t.Errorf("String() with quoting = %q", got)
	}
}

func TestParseProperties(t *testing.T) {
	t.Parallel()

	got, err := ParseProperties(`a=1, b="x, y", noframework`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"a": "1", "b": "x, y", "noframework": ""}
	if !maps.Equal(got, want) {
		t.Errorf("ParseProperties = %v, want %v", got, want)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	got := Split(` a , "b,c" ,, d`)
	want := []string{"a", `"b,c"`, "d"}
	if !slices.Equal(got, want) {
		t.Errorf("Split = %v, want %v", got, want)
	}
}
