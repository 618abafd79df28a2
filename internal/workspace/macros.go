// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bndkit/bndkit/internal/repository"
	"github.com/bndkit/bndkit/pkg/props"
)

const (
	globalPublicKey  = "key.public"
	globalPrivateKey = "key.private"
)

func (ws *Workspace) registerMacros() {
	ws.props.AddMacro("workspace", ws.macroWorkspace)
	ws.props.AddMacro("global", ws.macroGlobal)
	ws.props.AddMacro("repodigests", ws.macroRepoDigests)
}

// ${workspace}
func (ws *Workspace) macroWorkspace(_ *props.Processor, _ []string) (string, error) {
	return ws.root, nil
}

// ${global;<name>[;<default>]}
func (ws *Workspace) macroGlobal(_ *props.Processor, args []string) (string, error) {
	if len(args) < 2 || len(args) > 3 {
		return "", fmt.Errorf("usage: ${global;<name>[;<default>]}, get a global setting from the user settings")
	}
	switch key := args[1]; key {
	case globalPublicKey:
		return hex.EncodeToString(ws.settings.PublicKey()), nil
	case globalPrivateKey:
		return hex.EncodeToString(ws.settings.PrivateKey()), nil
	default:
		if v, ok := ws.settings.Get(key); ok {
			return v, nil
		}
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return "", nil
}

// ${repodigests[;<name>...]}
//
// Without names every repository able to report a digest contributes, in
// repository order. With names only those repositories contribute, and a name
// that is missing or cannot be digested is recorded as a workspace error.
func (ws *Workspace) macroRepoDigests(_ *props.Processor, args []string) (string, error) {
	names := args[1:]
	var digests []string
	found := make(map[string]bool, len(names))

	for _, r := range ws.Repositories() {
		if len(names) > 0 && !slices.Contains(names, r.Name()) {
			continue
		}
		found[r.Name()] = true
		d, err := repository.DigestOf(r)
		if err != nil {
			if len(names) > 0 {
				ws.props.Error("repository %s: %v", r.Name(), err)
			} else {
				slog.Debug("skipping repository digest", "repository", r.Name(), "error", err)
			}
			continue
		}
		digests = append(digests, hex.EncodeToString(d))
	}
	for _, n := range names {
		if !found[n] {
			ws.props.Error("%v: %s", repository.ErrRepositoryNotFound, n)
		}
	}
	return strings.Join(digests, ","), nil
}
