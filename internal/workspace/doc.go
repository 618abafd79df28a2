// SPDX-License-Identifier: MPL-2.0

// Package workspace models a bnd workspace: a directory holding a build
// configuration directory (bnd/ or cnf/) and a set of projects, each with a
// bnd.bnd definition file.
//
// Workspaces are obtained through a Registry, which finds the workspace root
// for any directory inside it and keeps at most one live Workspace per root.
// A Workspace resolves projects by name, orders them for building, exposes
// the configured repositories and dispatches change notifications to
// listeners.
package workspace
