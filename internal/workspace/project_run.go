// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"

	"github.com/bndkit/bndkit/pkg/header"
	"github.com/bndkit/bndkit/pkg/launch"
	"github.com/bndkit/bndkit/pkg/manifest"
)

// Framework selects how much of the OSGi framework the launcher starts.
type Framework int

const (
	// FrameworkServices starts the framework with its service layer.
	FrameworkServices Framework = iota
	// FrameworkNone starts no framework at all.
	FrameworkNone
)

// ActivatorHeader lists launcher activators in runpath manifests.
const ActivatorHeader = "Launcher-Activator"

func (f Framework) String() string {
	if f == FrameworkNone {
		return "none"
	}
	return "services"
}

// Runpath returns the files of -runpath.
func (p *Project) Runpath() ([]string, error) {
	return p.resolvePath("-runpath")
}

// Runbundles returns the files of -runbundles.
func (p *Project) Runbundles() ([]string, error) {
	return p.resolvePath("-runbundles")
}

// resolvePath resolves each clause of key to a file. Clauses that look like
// paths are taken relative to the project, others are bundle symbolic names
// looked up in the workspace with their version attribute. Clauses that do
// not resolve are recorded as project errors and left out.
func (p *Project) resolvePath(key string) ([]string, error) {
	params, err := header.Parse(p.Get(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s: %w", ErrMalformedProperty, p.name, key, err)
	}
	var out []string
	for _, c := range params {
		if isPathClause(c.Key) {
			out = append(out, p.props.File(c.Key))
			continue
		}
		version := c.Attrs.GetOr("version", "")
		path, err := p.ws.ResolveBundle(c.Key, version)
		if err != nil {
			return nil, err
		}
		if path == "" {
			p.props.Error("%s: cannot find %s;version=%s", key, c.Key, version)
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

func isPathClause(key string) bool {
	return strings.HasSuffix(key, ".jar") || strings.ContainsAny(key, `/\`)
}

// ResolveBundle returns the file of bundle bsn, or "" when no repository has
// it. version=project refers to the output of the workspace project bsn.
func (ws *Workspace) ResolveBundle(bsn, version string) (string, error) {
	if version == "project" {
		dep, err := ws.GetProject(bsn)
		if err != nil {
			return "", err
		}
		if dep != nil {
			return filepath.Join(dep.TargetDir(), bsn+".jar"), nil
		}
	}
	for _, r := range ws.Repositories() {
		path, err := r.Get(bsn, version)
		if err != nil {
			return "", fmt.Errorf("resolve %s from %s: %w", bsn, r.Name(), err)
		}
		if path != "" {
			return path, nil
		}
	}
	return "", nil
}

// RunProperties returns the -runproperties map.
func (p *Project) RunProperties() (map[string]string, error) {
	m, err := header.ParseProperties(p.Get("-runproperties"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: -runproperties: %w", ErrMalformedProperty, p.name, err)
	}
	return m, nil
}

// Activators returns the Launcher-Activator classes declared by the runpath
// jars, in runpath order.
func (p *Project) Activators() ([]string, error) {
	runpath, err := p.Runpath()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, jar := range runpath {
		out = append(out, p.ws.activatorsOf(jar)...)
	}
	return out, nil
}

func (ws *Workspace) activatorsOf(jar string) []string {
	info, err := os.Stat(jar)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	key := jar + "@" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	if v, ok := ws.activators.Get(key); ok {
		return v
	}
	var activators []string
	m, err := manifest.FromJar(jar)
	if err != nil {
		slog.Debug("no manifest in runpath jar", "jar", jar, "error", err)
	} else if v, ok := m.Main.Get(ActivatorHeader); ok {
		activators = header.Split(v)
	}
	ws.activators.Add(key, activators)
	return activators
}

// SystemPackages returns -runsystempackages.
func (p *Project) SystemPackages() string { return p.Get("-runsystempackages") }

// SystemCapabilities returns -runsystemcapabilities.
func (p *Project) SystemCapabilities() string { return p.Get("-runsystemcapabilities") }

// RunFramework returns the -runframework setting.
func (p *Project) RunFramework() Framework {
	if strings.EqualFold(strings.TrimSpace(p.Get("-runframework")), "none") {
		return FrameworkNone
	}
	return FrameworkServices
}

// Timeout returns -runtimeout, given in milliseconds or as a Go duration.
// Unparsable values are recorded as errors and read as zero.
func (p *Project) Timeout() time.Duration {
	v := strings.TrimSpace(p.Get("-runtimeout"))
	if v == "" {
		return 0
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.props.Error("%v: -runtimeout: %q", ErrMalformedProperty, v)
		return 0
	}
	return d
}

// Keep reports -runkeep.
func (p *Project) Keep() bool { return p.props.IsTrue("-runkeep") }

// RunTrace reports -runtrace.
func (p *Project) RunTrace() bool { return p.props.IsTrue("-runtrace") }

// NoReferences reports -runnoreferences.
func (p *Project) NoReferences() bool { return p.props.IsTrue("-runnoreferences") }

// IsGenLaunchProp reports -genlaunchprop: launching only writes the launch
// properties.
func (p *Project) IsGenLaunchProp() bool { return p.props.IsTrue("-genlaunchprop") }

// Package returns the -package header.
func (p *Project) Package() string { return p.Get("-package") }

// RemoveHeaders returns the -removeheaders instructions.
func (p *Project) RemoveHeaders() (header.Instructions, error) {
	in, err := header.ParseInstructions(p.Get("-removeheaders"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: -removeheaders: %w", ErrMalformedProperty, p.name, err)
	}
	return in, nil
}

// StorageDir returns the framework storage directory, -runstorage resolved
// against the project.
func (p *Project) StorageDir() string {
	if v := p.Get("-runstorage"); v != "" {
		return p.props.File(v)
	}
	return filepath.Join(p.TargetDir(), "fw")
}

// TargetDir returns the output directory without creating it.
func (p *Project) TargetDir() string {
	return p.props.File(p.props.GetOr("target-dir", "generated"))
}

// Target returns the output directory, creating it when missing.
func (p *Project) Target() (string, error) {
	dir := p.TargetDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create target %s: %w", dir, err)
	}
	return dir, nil
}

// RunVM returns the -runvm arguments, split like a shell command line.
func (p *Project) RunVM() ([]string, error) {
	return p.fields("-runvm")
}

// RunProgramArgs returns the -runprogramargs arguments.
func (p *Project) RunProgramArgs() ([]string, error) {
	return p.fields("-runprogramargs")
}

func (p *Project) fields(key string) ([]string, error) {
	v := strings.TrimSpace(p.Get(key))
	if v == "" {
		return nil, nil
	}
	f, err := shell.Fields(v, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s: %w", ErrMalformedProperty, p.name, key, err)
	}
	return f, nil
}

// LaunchConstants collects the launcher settings of the project with the
// given run bundle locations.
func (p *Project) LaunchConstants(bundles []string) (*launch.Constants, error) {
	runprops, err := p.RunProperties()
	if err != nil {
		return nil, err
	}
	activators, err := p.Activators()
	if err != nil {
		return nil, err
	}
	return &launch.Constants{
		RunProperties:      runprops,
		StorageDir:         p.StorageDir(),
		Keep:               p.Keep(),
		Trace:              p.RunTrace(),
		Timeout:            p.Timeout(),
		Services:           p.RunFramework() == FrameworkServices,
		Activators:         activators,
		Name:               p.name,
		SystemPackages:     p.SystemPackages(),
		SystemCapabilities: p.SystemCapabilities(),
		RunBundles:         bundles,
		NoReferences:       p.NoReferences(),
	}, nil
}
