// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsFatalFsnotifyError(t *testing.T) {
	t.Parallel()

	tests := map[error]bool{
		syscall.ENOSPC:                         true,
		syscall.EMFILE:                         true,
		syscall.ENFILE:                         true,
		fmt.Errorf("inotify: %w", syscall.ENOSPC): true,
		syscall.EPERM:                          false,
		syscall.EACCES:                         false,
		errors.New("queue overflow"):           false,
	}
	for err, want := range tests {
		if got := isFatalFsnotifyError(err); got != want {
			t.Errorf("isFatalFsnotifyError(%v) = %v, want %v", err, got, want)
		}
	}
}
