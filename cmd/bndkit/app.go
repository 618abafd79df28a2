// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bndkit/bndkit/internal/config"
	"github.com/bndkit/bndkit/internal/dag"
	"github.com/bndkit/bndkit/internal/issue"
	"github.com/bndkit/bndkit/internal/workspace"
)

// errProjectNotFound is reported when a project name does not resolve.
var errProjectNotFound = errors.New("project not found")

// workspace opens the workspace around --workspace or the working directory.
func (a *App) workspace() (*workspace.Workspace, error) {
	dir := a.workspaceDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		dir = wd
	}
	ws, err := a.registry.Get(dir)
	if err != nil {
		return nil, a.fail(err)
	}
	for _, w := range ws.Warnings() {
		slog.Warn(w, "workspace", ws.Root())
	}
	for _, e := range ws.Errors() {
		slog.Error(e, "workspace", ws.Root())
	}
	return ws, nil
}

// project resolves name in the workspace.
func (a *App) project(name string) (*workspace.Project, error) {
	ws, err := a.workspace()
	if err != nil {
		return nil, err
	}
	p, err := ws.GetProject(name)
	if err != nil {
		return nil, a.fail(err)
	}
	if p == nil {
		return nil, a.fail(fmt.Errorf("%w: %s", errProjectNotFound, name))
	}
	return p, nil
}

// fail renders the issue matching err, if any, and returns an error that
// carries exit code 1.
func (a *App) fail(err error) error {
	var (
		cycle      *dag.CycleError
		actionable *issue.ActionableError
		id         issue.Id
	)
	switch {
	case errors.As(err, &actionable) && actionable.Guide != 0:
		id = actionable.Guide
	case errors.Is(err, workspace.ErrNoWorkspace):
		id = issue.WorkspaceNotFoundId
	case errors.Is(err, errProjectNotFound):
		id = issue.ProjectNotFoundId
	case errors.As(err, &cycle):
		id = issue.DependencyCycleId
	case errors.Is(err, workspace.ErrCacheLocked):
		id = issue.CacheLockedId
	case errors.Is(err, config.ErrInvalidSettings):
		id = issue.SettingsLoadFailedId
	}
	if id != 0 {
		a.renderIssue(id)
	}
	if actionable != nil || errors.As(err, &actionable) {
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+actionable.Format(a.verbose))
		return &ExitError{Code: 1}
	}
	return &ExitError{Code: 1, Err: err}
}

func (a *App) renderIssue(id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(a.issueStyle())
	if err != nil {
		slog.Warn("failed to render issue", "id", id, "error", err)
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

// issueStyle picks the glamour style: colors only on a terminal.
func (a *App) issueStyle() string {
	if f, ok := a.stderr.(*os.File); ok {
		if term.IsTerminal(int(f.Fd())) {
			return "dark"
		}
	}
	return "notty"
}
