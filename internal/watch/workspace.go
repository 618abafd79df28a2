// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"log/slog"

	"github.com/bndkit/bndkit/internal/workspace"
)

// ForWorkspace watches the root of ws. Each batch is reported to the
// workspace listeners inside a Bracket pair, followed by a Refresh and a
// Signal. cfg.OnChange, when set, runs after the workspace was updated.
func ForWorkspace(ws *workspace.Workspace, cfg Config) (*Watcher, error) {
	cfg.Root = ws.Root()
	next := cfg.OnChange
	cfg.OnChange = func(ctx context.Context, changed []string) error {
		ws.Bracket(true)
		for _, path := range changed {
			ws.ChangedFile(path)
		}
		refreshed := ws.Refresh()
		ws.Bracket(false)
		if refreshed {
			slog.Info("workspace refreshed", "root", ws.Root(), "changes", len(changed))
		}
		ws.Signal(ctx)
		if next != nil {
			return next(ctx, changed)
		}
		return nil
	}
	return New(cfg)
}
