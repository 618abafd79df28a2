// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bndkit command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bndkit/bndkit/internal/config"
	"github.com/bndkit/bndkit/internal/workspace"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App carries the state shared by the commands of one invocation.
	App struct {
		stdout io.Writer
		stderr io.Writer

		workspaceDir string
		settingsDir  string
		verbose      bool

		settings *config.Settings
		registry *workspace.Registry
	}
)

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	app := &App{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "bndkit",
		Short: "Inspect, order and launch bnd workspaces",
		Long: TitleStyle.Render("bndkit") + SubtitleStyle.Render(" - bnd workspaces from the command line") + `

bndkit finds the bnd workspace around the current directory (the directory
holding cnf/ or bnd/), resolves its projects and computes the order in which
they must be built.

` + SubtitleStyle.Render("Examples:") + `
  bndkit projects                 List the projects of the workspace
  bndkit buildorder               Print the build order
  bndkit project app              Show a project and its dependencies
  bndkit export app -o app.jar    Package app as an executable JAR
  bndkit macro '${workspace}'     Expand a macro in the workspace scope`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&app.workspaceDir, "workspace", "w", "", "directory inside the workspace (default is the working directory)")
	flags.StringVar(&app.settingsDir, "settings", "", "settings directory (default is $BND_SETTINGS_DIR or ~/.bnd)")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newProjectsCommand(app),
		newProjectCommand(app),
		newBuildOrderCommand(app),
		newExportCommand(app),
		newLaunchCommand(app),
		newMacroCommand(app),
		newReposCommand(app),
		newWatchCommand(app),
		newSettingsCommand(app),
	)
	return root
}

// init configures logging and loads the user settings.
func (a *App) init(ctx context.Context) error {
	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{Level: level, Prefix: "bndkit"})
	slog.SetDefault(slog.New(logger))

	settings, err := config.Load(ctx, config.LoadOptions{Dir: a.settingsDir})
	if err != nil {
		return a.fail(err)
	}
	a.settings = settings
	a.registry = workspace.NewRegistry(workspace.WithSettings(settings))
	return nil
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Run executes the command line and returns the process exit code.
func Run() int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Execute runs the command line and exits the process.
func Execute() {
	os.Exit(Run())
}

// handleError prints errors that were not rendered as an issue already.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}
