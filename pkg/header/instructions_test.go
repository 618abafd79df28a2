// SPDX-License-Identifier: MPL-2.0

package header

import (
	"slices"
	"testing"
)

func TestInstructions_Select(t *testing.T) {
	t.Parallel()

	names := []string{"Bundle-Name", "Bundle-Version", "Private-Package", "Include-Resource", "Created-By"}

	tests := []struct {
		name       string
		header     string
		emptyIsAll bool
		want       []string
	}{
		{name: "empty selects nothing", header: "", want: nil},
		{name: "empty selects all", header: "", emptyIsAll: true, want: names},
		{name: "literal", header: "Created-By", want: []string{"Created-By"}},
		{name: "wildcard", header: "Bundle-*", want: []string{"Bundle-Name", "Bundle-Version"}},
		{
			name:   "negation wins when first",
			header: "!Bundle-Version, Bundle-*",
			want:   []string{"Bundle-Name"},
		},
		{
			name:   "several patterns",
			header: "Private-Package, *-Resource",
			want:   []string{"Private-Package", "Include-Resource"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			is, err := ParseInstructions(tt.header)
			if err != nil {
				t.Fatalf("ParseInstructions(%q): %v", tt.header, err)
			}
			got := is.Select(names, tt.emptyIsAll)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseInstructions_InvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := ParseInstructions("Bundle-[Name"); err == nil {
		t.Fatal("expected error for unclosed character class")
	}
}
