// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"testing"
)

func TestSetHomeDir(t *testing.T) {
	// Not parallel: changes the process environment.
	before, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	dir := t.TempDir()
	restore := SetHomeDir(t, dir)
	if got, _ := os.UserHomeDir(); got != dir {
		t.Errorf("UserHomeDir() = %q, want %q", got, dir)
	}

	restore()
	if got, _ := os.UserHomeDir(); got != before {
		t.Errorf("after restore UserHomeDir() = %q, want %q", got, before)
	}
}

func TestMustUnsetenv(t *testing.T) {
	const key = "BNDKIT_TESTUTIL_PROBE"
	t.Cleanup(MustSetenv(t, key, "on"))

	restore := MustUnsetenv(t, key)
	if _, ok := os.LookupEnv(key); ok {
		t.Errorf("%s still set", key)
	}
	restore()
	if v := os.Getenv(key); v != "on" {
		t.Errorf("%s = %q after restore", key, v)
	}
}
