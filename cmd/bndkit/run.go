// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bndkit/bndkit/internal/issue"
	"github.com/bndkit/bndkit/internal/launcher"
)

func newExportCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Package a project as an executable JAR",
		Long: `Package a project as an executable JAR.

By default the runpath and run bundles are embedded under jar/. With
"-package: jpm" in the project the JAR references them by SHA-1 instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.project(args[0])
			if err != nil {
				return err
			}
			out := output
			if out == "" {
				target, err := p.Target()
				if err != nil {
					return app.fail(err)
				}
				out = filepath.Join(target, p.Name()+".jar")
			}
			if err := launcher.NewPackager(p).Export(out); err != nil {
				return app.fail(issue.About(issue.ScopeProject, p.Name()).
					Doing("export").
					Hint("Check -runpath and -runbundles with 'bndkit project "+p.Name()+"'").
					Guide(issue.ExportFailedId).
					Wrap(err).
					Err())
			}
			for _, e := range p.Errors() {
				slog.Error(e, "project", p.Name())
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("exported ")+out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default is <target>/<project>.jar)")
	return cmd
}

func newLaunchCommand(app *App) *cobra.Command {
	var java string
	cmd := &cobra.Command{
		Use:   "launch <project>",
		Short: "Run a project with the launcher",
		Long: `Run a project with the launcher.

The launch properties are written to a temporary file in the project target,
or to launch.properties in the project directory when -genlaunchprop is set.
In the latter case nothing is started.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.project(args[0])
			if err != nil {
				return err
			}
			l, err := launcher.NewProjectLauncher(p)
			if err != nil {
				return app.fail(err)
			}
			defer func() {
				if err := l.Cleanup(); err != nil {
					slog.Warn("cleanup failed", "error", err)
				}
			}()
			l.Java = java
			l.Stdout = app.stdout
			l.Stderr = app.stderr

			code, err := l.Launch(cmd.Context())
			for _, w := range p.Warnings() {
				slog.Warn(w, "project", p.Name())
			}
			if err != nil {
				return app.fail(err)
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&java, "java", "java", "java executable")
	return cmd
}
