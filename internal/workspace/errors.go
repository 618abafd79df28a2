// SPDX-License-Identifier: MPL-2.0

package workspace

import "errors"

var (
	// ErrNoWorkspace is returned when no bnd/ or cnf/ directory is found in a
	// directory or any of its parents.
	ErrNoWorkspace = errors.New("no workspace found")
	// ErrWorkspaceRemoved is returned when a cached workspace's directory no
	// longer exists.
	ErrWorkspaceRemoved = errors.New("workspace directory was removed")
	// ErrBadRedirect is returned when a bnd or cnf redirect file names a
	// location that is not a directory, or redirects loop.
	ErrBadRedirect = errors.New("invalid workspace redirect")
	// ErrMalformedProperty marks a property whose value cannot be parsed.
	ErrMalformedProperty = errors.New("malformed property")
	// ErrCacheLocked is returned when the cache repository stays locked for
	// longer than the lock timeout.
	ErrCacheLocked = errors.New("cache repository is locked")
	// ErrSeedMissing is returned when the embedded cache seed is empty.
	ErrSeedMissing = errors.New("embedded cache seed is missing")
)
