// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      Config
		wantErrs int
	}{
		{name: "zero value", cfg: Config{}},
		{name: "valid patterns", cfg: Config{Root: "/ws", Patterns: []string{"**/*.bnd"}, Ignore: []string{"tmp/**"}}},
		{name: "empty pattern", cfg: Config{Patterns: []string{""}}, wantErrs: 1},
		{name: "bad pattern", cfg: Config{Ignore: []string{"[a"}}, wantErrs: 1},
		{name: "blank root", cfg: Config{Root: "  "}, wantErrs: 1},
		{name: "every problem", cfg: Config{Root: " ", Patterns: []string{"", "["}, Ignore: []string{" "}}, wantErrs: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErrs == 0 {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
			var ce *InvalidConfigError
			if !errors.As(err, &ce) || len(ce.FieldErrors) != tt.wantErrs {
				t.Errorf("Validate() = %v, want %d field errors", err, tt.wantErrs)
			}
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Root: t.TempDir(), Patterns: []string{"["}}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() = %v, want ErrInvalidConfig", err)
	}
}
