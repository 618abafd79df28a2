// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNotDigestible is returned when a repository cannot report a digest.
	ErrNotDigestible = errors.New("repository does not support digests")
	// ErrRepositoryNotFound is returned when a named repository is not configured.
	ErrRepositoryNotFound = errors.New("repository not found")
)

type (
	// Repository provides bundles by symbolic name and version.
	Repository interface {
		// Name identifies the repository in configuration and macros.
		Name() string
		// List returns the symbolic names matching a glob pattern, sorted.
		// An empty pattern lists everything.
		List(pattern string) ([]string, error)
		// Versions returns the versions available for bsn, lowest first.
		Versions(bsn string) ([]string, error)
		// Get returns the path of the requested bundle, or "" when absent.
		// The version may be empty, "latest" or "project" to select the
		// highest available version.
		Get(bsn, version string) (string, error)
	}

	// Digester is implemented by repositories that can summarize their
	// content as a digest.
	Digester interface {
		Digest() ([]byte, error)
	}
)

// DigestOf returns the digest of r, or ErrNotDigestible when r does not
// implement Digester.
func DigestOf(r Repository) ([]byte, error) {
	d, ok := r.(Digester)
	if !ok {
		return nil, ErrNotDigestible
	}
	return d.Digest()
}

// CompareVersions compares two OSGi versions (major.minor.micro.qualifier).
// Missing numeric parts count as zero and qualifiers compare as strings.
// Non-numeric parts in numeric positions compare as strings.
func CompareVersions(a, b string) int {
	pa := strings.SplitN(strings.TrimSpace(a), ".", 4)
	pb := strings.SplitN(strings.TrimSpace(b), ".", 4)
	for i := range 3 {
		x, y := part(pa, i), part(pb, i)
		nx, errX := strconv.Atoi(x)
		ny, errY := strconv.Atoi(y)
		if errX == nil && errY == nil {
			if nx != ny {
				if nx < ny {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
	}
	qa, qb := "", ""
	if len(pa) == 4 {
		qa = pa[3]
	}
	if len(pb) == 4 {
		qb = pb[3]
	}
	return strings.Compare(qa, qb)
}

func part(parts []string, i int) string {
	if i < len(parts) && parts[i] != "" {
		return parts[i]
	}
	return "0"
}
