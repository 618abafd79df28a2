// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bndkit/bndkit/internal/repository"
	"github.com/bndkit/bndkit/internal/watch"
)

func newMacroCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "macro <text>...",
		Short: "Expand macros in the workspace scope",
		Example: `  bndkit macro '${workspace}'
  bndkit macro '${global;user.name;anonymous}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			props := ws.Properties()
			before := len(props.Errors())
			fmt.Fprintln(app.stdout, props.Expand(strings.Join(args, " ")))
			if errs := props.Errors(); len(errs) > before {
				for _, e := range errs[before:] {
					fmt.Fprintln(app.stderr, ErrorStyle.Render("error: ")+e)
				}
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
}

func newReposCommand(app *App) *cobra.Command {
	var digests bool
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List the repositories of the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			for _, r := range ws.Repositories() {
				if !digests {
					fmt.Fprintln(app.stdout, NameStyle.Render(r.Name()))
					continue
				}
				digest := "-"
				d, err := repository.DigestOf(r)
				switch {
				case err == nil:
					digest = hex.EncodeToString(d)
				case errors.Is(err, repository.ErrNotDigestible):
				default:
					return app.fail(err)
				}
				fmt.Fprintf(app.stdout, "%s %s\n", NameStyle.Render(r.Name()), digest)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&digests, "digests", false, "print the content digest of each repository")
	return cmd
}

func newWatchCommand(app *App) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the workspace when files change",
		Long: `Refresh the workspace when files change.

Changes are reported in batches. Each batch refreshes the workspace
configuration and reloads the projects whose definition files changed.
Build output (generated/, bin/) and the repository cache are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := app.workspace()
			if err != nil {
				return err
			}
			w, err := watch.ForWorkspace(ws, watch.Config{
				Debounce: debounce,
				OnChange: func(_ context.Context, changed []string) error {
					for _, path := range changed {
						fmt.Fprintln(app.stdout, SubtitleStyle.Render("changed ")+relTo(ws.Root(), path))
					}
					return nil
				},
			})
			if err != nil {
				return app.fail(err)
			}
			slog.Info("watching workspace", "root", ws.Root())
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a batch is reported")
	return cmd
}

func newSettingsCommand(app *App) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect the user settings",
		Long: `Inspect the user settings.

Settings are read from settings.json in $BND_SETTINGS_DIR or ~/.bnd. Any
entry of its "map" object can be overridden with BND_GLOBAL_<KEY>, and is
available in bnd files as ${global;<key>}.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the settings file and its entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := app.settings
			out := app.stdout
			path := s.Path()
			if path == "" {
				path = SubtitleStyle.Render("(none)")
			}
			fmt.Fprintf(out, "%s: %s\n", NameStyle.Render("file"), path)
			fmt.Fprintf(out, "%s: %t\n", NameStyle.Render("public key"), s.PublicKey() != nil)
			for _, k := range s.Keys() {
				v, _ := s.Get(k)
				fmt.Fprintf(out, "%s = %s\n", k, v)
			}
			return nil
		},
	})
	return settingsCmd
}
