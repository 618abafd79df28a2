// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bndkit/bndkit/internal/workspace"
)

func newProjectsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List the projects of the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			projects, err := ws.AllProjects()
			if err != nil {
				return app.fail(err)
			}
			for _, p := range projects {
				fmt.Fprintf(app.stdout, "%s %s\n", NameStyle.Render(p.Name()), SubtitleStyle.Render(relTo(ws.Root(), p.Base())))
			}
			return nil
		},
	}
}

func newProjectCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "project <name>",
		Short: "Show a project and its dependencies",
		Long: `Show a project and its dependencies.

The name is looked up in the -project-search directories of the workspace.
When no directory has that name, shorter dotted prefixes of the name are
tried, so "com.example.app.test" finds the project "com.example.app".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.project(args[0])
			if err != nil {
				return err
			}
			return showProject(app, p)
		},
	}
}

func showProject(app *App, p *workspace.Project) error {
	deps, err := p.DependsOn()
	if err != nil {
		return app.fail(err)
	}
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.Name()
	}

	out := app.stdout
	fmt.Fprintln(out, TitleStyle.Render(p.Name()))
	fmt.Fprintf(out, "%s: %s\n", NameStyle.Render("base"), p.Base())
	fmt.Fprintf(out, "%s: %s\n", NameStyle.Render("definition"), p.DefinitionFile())
	fmt.Fprintf(out, "%s: %s\n", NameStyle.Render("dependson"), strings.Join(names, ", "))
	for _, w := range p.Warnings() {
		fmt.Fprintln(out, WarningStyle.Render("warning: ")+w)
	}
	for _, e := range p.Errors() {
		fmt.Fprintln(out, ErrorStyle.Render("error: ")+e)
	}
	return nil
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
