// SPDX-License-Identifier: MPL-2.0

// Package header parses OSGi style manifest and instruction headers.
//
// A header is a comma separated list of clauses. Each clause has one or more
// keys followed by attributes (name=value) and directives (name:=value):
//
//	-project-search: bundles;depth=2, tools
//
// Instructions are headers whose keys are wildcard patterns, optionally
// negated with '!'.
package header
