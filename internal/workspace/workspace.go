// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bndkit/bndkit/internal/repository"
	"github.com/bndkit/bndkit/pkg/header"
	"github.com/bndkit/bndkit/pkg/props"
)

const (
	// BuildFile is the workspace property file inside the configuration directory.
	BuildFile = "build.bnd"
	// DefaultProjectFile is the definition file every project directory holds.
	DefaultProjectFile = "bnd.bnd"

	// ProjectSearchKey lists the roots searched for projects.
	ProjectSearchKey = "-project-search"
	// PluginKey configures repository plugins.
	PluginKey = "-plugin"

	extDir            = "ext"
	activatorCacheLen = 256
)

type (
	// Settings is the read-through view of the user settings a workspace needs.
	Settings interface {
		Get(key string) (string, bool)
		PublicKey() []byte
		PrivateKey() []byte
	}

	// Workspace is a directory tree of projects sharing a build configuration.
	Workspace struct {
		props    *props.Processor
		root     string
		buildDir string
		settings Settings

		// mu guards project resolution end to end.
		mu            sync.Mutex
		projects      map[string]*Project // nil value: cached miss
		byDir         map[string]*Project
		searchEntries []SearchEntry
		searchLoaded  bool
		extFiles      []string

		cmdMu    sync.Mutex
		commands map[string]Action

		listenerMu sync.RWMutex
		listeners  []Listener

		repoMu  sync.RWMutex
		cache   *cacheRepo
		plugins []repository.Repository
		extra   []repository.Repository

		offline    atomic.Bool
		activators *lru.Cache[string, []string]
	}
)

func newWorkspace(root string, settings Settings) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}
	activators, err := lru.New[string, []string](activatorCacheLen)
	if err != nil {
		return nil, fmt.Errorf("create activator cache: %w", err)
	}

	buildDir := filepath.Join(root, MarkerDirs[1])
	if info, err := os.Stat(filepath.Join(root, MarkerDirs[0])); err == nil && info.IsDir() {
		buildDir = filepath.Join(root, MarkerDirs[0])
	}

	ws := &Workspace{
		props:      props.New(Defaults(), root),
		root:       root,
		buildDir:   buildDir,
		settings:   settings,
		projects:   make(map[string]*Project),
		byDir:      make(map[string]*Project),
		commands:   make(map[string]Action),
		activators: activators,
	}
	ws.offline.Store(true)
	ws.cache = newCacheRepo(filepath.Join(buildDir, cacheDirName, cacheVersion))
	ws.registerMacros()
	ws.load()
	return ws, nil
}

// load reads build.bnd and the ext includes.
func (ws *Workspace) load() {
	ws.props.ClearDiagnostics()
	if err := ws.props.LoadFile(filepath.Join(ws.buildDir, BuildFile)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			ws.props.Warning("No Build File in %s", ws.buildDir)
		} else {
			ws.props.Error("%v", err)
		}
	}
	ws.propertiesChanged()
}

// propertiesChanged re-derives everything computed from the properties:
// ext includes, repository plugins and project search roots.
func (ws *Workspace) propertiesChanged() {
	files := ws.listExtFiles()
	for _, f := range files {
		scope := "ext." + strings.TrimSuffix(filepath.Base(f), ".bnd")
		if err := ws.props.Include(f, scope, false); err != nil {
			ws.props.Warning("%v", err)
		}
	}
	ws.loadPlugins()

	ws.mu.Lock()
	ws.extFiles = files
	ws.searchEntries = nil
	ws.searchLoaded = false
	ws.mu.Unlock()
}

func (ws *Workspace) listExtFiles() []string {
	files, err := filepath.Glob(filepath.Join(ws.buildDir, extDir, "*.bnd"))
	if err != nil {
		ws.props.Warning("list %s: %v", extDir, err)
		return nil
	}
	return files
}

func (ws *Workspace) loadPlugins() {
	params, err := header.Parse(ws.props.Get(PluginKey))
	if err != nil {
		ws.props.Error("%v: %s: %v", ErrMalformedProperty, PluginKey, err)
		params = nil
	}
	var plugins []repository.Repository
	for _, c := range params {
		if !strings.HasSuffix(strings.ToLower(c.Key), "filerepo") {
			ws.props.Warning("unknown plugin type %s", c.Key)
			continue
		}
		location, ok := c.Attrs.Get("location")
		if !ok || location == "" {
			ws.props.Error("%v: %s: plugin %s has no location", ErrMalformedProperty, PluginKey, c.Key)
			continue
		}
		name := c.Attrs.GetOr("name", filepath.Base(location))
		plugins = append(plugins, repository.NewFileRepo(name, ws.props.File(location)))
	}

	ws.repoMu.Lock()
	ws.plugins = plugins
	ws.repoMu.Unlock()
}

// Refresh re-reads the workspace properties when build.bnd or an ext file
// changed, or ext files were added or removed. Cached projects are told about
// the change before Refresh returns. It reports whether anything was re-read.
func (ws *Workspace) Refresh() bool {
	if !ws.props.Changed() && !ws.extChanged() {
		return false
	}
	slog.Debug("refreshing workspace", "root", ws.root)
	ws.load()

	ws.mu.Lock()
	for name, p := range ws.projects {
		if p == nil {
			delete(ws.projects, name)
		}
	}
	cached := ws.currentLocked()
	ws.mu.Unlock()

	for _, p := range cached {
		p.PropertiesChanged()
	}
	return true
}

func (ws *Workspace) extChanged() bool {
	files := ws.listExtFiles()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return !slices.Equal(files, ws.extFiles)
}

// Root returns the canonical workspace directory.
func (ws *Workspace) Root() string { return ws.root }

// BuildDir returns the configuration directory (bnd/ or cnf/).
func (ws *Workspace) BuildDir() string { return ws.buildDir }

// Properties returns the workspace property scope. Projects inherit from it.
func (ws *Workspace) Properties() *props.Processor { return ws.props }

// Get returns the expanded workspace property key.
func (ws *Workspace) Get(key string) string { return ws.props.Get(key) }

// Settings returns the user settings the workspace reads.
func (ws *Workspace) Settings() Settings { return ws.settings }

// Errors returns the errors recorded on the workspace.
func (ws *Workspace) Errors() []string { return ws.props.Errors() }

// Warnings returns the warnings recorded on the workspace.
func (ws *Workspace) Warnings() []string { return ws.props.Warnings() }

// IsOffline reports whether no change notification was received yet.
func (ws *Workspace) IsOffline() bool { return ws.offline.Load() }

// SetOffline overrides the offline flag.
func (ws *Workspace) SetOffline(on bool) *Workspace {
	ws.offline.Store(on)
	return ws
}

// Repositories returns the cache repository, the -plugin repositories and the
// repositories added with AddRepository, in that order.
func (ws *Workspace) Repositories() []repository.Repository {
	ws.repoMu.RLock()
	defer ws.repoMu.RUnlock()
	out := make([]repository.Repository, 0, 1+len(ws.plugins)+len(ws.extra))
	out = append(out, ws.cache)
	out = append(out, ws.plugins...)
	out = append(out, ws.extra...)
	return out
}

// AddRepository registers an additional repository.
func (ws *Workspace) AddRepository(r repository.Repository) {
	ws.repoMu.Lock()
	defer ws.repoMu.Unlock()
	ws.extra = append(ws.extra, r)
}

// CacheRepository returns the workspace cache repository.
func (ws *Workspace) CacheRepository() *repository.FileRepo {
	return ws.cache.FileRepo
}

func (ws *Workspace) String() string {
	return ws.root
}
