// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bndkit/bndkit/internal/workspace"
)

type buildOrderFlags struct {
	separator  string
	fullPath   bool
	projectDir string
	buildFile  string
}

func newBuildOrderCommand(app *App) *cobra.Command {
	var flags buildOrderFlags
	cmd := &cobra.Command{
		Use:   "buildorder",
		Short: "Print the order in which projects must be built",
		Long: `Print the order in which projects must be built.

Every project appears after the projects it depends on. With --project only
the dependencies of the project in that directory are printed, in build
order and without the project itself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuildOrder(app, flags)
		},
	}
	cmd.Flags().StringVar(&flags.separator, "separator", ",", "separator between projects")
	cmd.Flags().BoolVar(&flags.fullPath, "fullpath", false, "print project directories instead of names")
	cmd.Flags().StringVar(&flags.projectDir, "project", "", "only print the dependencies of the project in this directory")
	cmd.Flags().StringVar(&flags.buildFile, "buildfile", workspace.DefaultProjectFile, "definition file of the --project project")
	return cmd
}

func runBuildOrder(app *App, flags buildOrderFlags) error {
	ws, err := app.workspace()
	if err != nil {
		return err
	}

	var order []*workspace.Project
	if flags.projectDir == "" {
		order, err = ws.BuildOrder()
	} else {
		dir, absErr := filepath.Abs(flags.projectDir)
		if absErr != nil {
			return app.fail(absErr)
		}
		order, err = ws.BuildOrderOf(workspace.NewProject(ws, dir, flags.buildFile))
	}
	if err != nil {
		return app.fail(err)
	}

	parts := make([]string, len(order))
	for i, p := range order {
		if flags.fullPath {
			parts[i] = p.Base()
		} else {
			parts[i] = p.Name()
		}
	}
	fmt.Fprintln(app.stdout, strings.Join(parts, flags.separator))
	return nil
}
