// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bndkit/bndkit/internal/workspace"
	"github.com/bndkit/bndkit/pkg/launch"
)

const (
	// DefaultLauncherBSN is the bundle that provides the launcher classes.
	DefaultLauncherBSN = "biz.aQute.launcher"
	// LaunchPropertiesFile is written to the project base with -genlaunchprop.
	LaunchPropertiesFile = "launch.properties"
)

// ProjectLauncher runs a project in a child JVM through the launcher.
type ProjectLauncher struct {
	// Java is the java executable. It defaults to "java".
	Java string
	// Stdout and Stderr receive the output of the JVM. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	project        *workspace.Project
	propertiesFile string
	temporary      bool
	framework      workspace.Framework

	mu       sync.Mutex
	prepared bool
}

// NewProjectLauncher returns a launcher for p. With -genlaunchprop the
// launch properties are written to launch.properties in the project
// directory, otherwise to a temporary file in the project target.
func NewProjectLauncher(p *workspace.Project) (*ProjectLauncher, error) {
	l := &ProjectLauncher{Java: "java", project: p, framework: p.RunFramework()}
	if p.IsGenLaunchProp() {
		l.propertiesFile = filepath.Join(p.Base(), LaunchPropertiesFile)
	} else {
		target, err := p.Target()
		if err != nil {
			return nil, err
		}
		f, err := os.CreateTemp(target, "launch-*.properties")
		if err != nil {
			return nil, fmt.Errorf("create launch properties: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("create launch properties: %w", err)
		}
		l.propertiesFile = f.Name()
		l.temporary = true
	}
	p.Trace("launch properties in %s", l.propertiesFile)

	runprops, err := p.RunProperties()
	if err != nil {
		return nil, err
	}
	if _, ok := runprops["noframework"]; ok {
		p.Properties().Warning("The noframework property in -runproperties is replaced by a project setting: '-runframework: none'")
		l.framework = workspace.FrameworkNone
	}
	return l, nil
}

// PropertiesFile returns the launch properties file.
func (l *ProjectLauncher) PropertiesFile() string {
	return l.propertiesFile
}

// Framework returns the framework mode written to the launch properties.
func (l *ProjectLauncher) Framework() workspace.Framework {
	return l.framework
}

// Update rewrites the launch properties from the current project settings.
func (l *ProjectLauncher) Update() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeProperties()
}

// Prepare writes the launch properties once.
func (l *ProjectLauncher) Prepare() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.prepared {
		return nil
	}
	if err := l.writeProperties(); err != nil {
		return err
	}
	l.prepared = true
	return nil
}

func (l *ProjectLauncher) writeProperties() error {
	p := l.project
	bundles, err := p.Runbundles()
	if err != nil {
		return err
	}
	c, err := p.LaunchConstants(bundles)
	if err != nil {
		return err
	}
	c.Services = l.framework == workspace.FrameworkServices

	f, err := os.Create(l.propertiesFile)
	if err != nil {
		return fmt.Errorf("write launch properties: %w", err)
	}
	if err := c.Store(f, "Launching "+p.Name()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write launch properties: %w", err)
	}
	slog.Debug("wrote launch properties", "project", p.Name(), "file", l.propertiesFile)
	return nil
}

// Classpath returns the runpath with the launcher bundle appended when the
// runpath does not carry it.
func (l *ProjectLauncher) Classpath() ([]string, error) {
	runpath, err := l.project.Runpath()
	if err != nil {
		return nil, err
	}
	hasLauncher := slices.ContainsFunc(runpath, func(path string) bool {
		return strings.HasPrefix(filepath.Base(path), DefaultLauncherBSN)
	})
	if !hasLauncher {
		jar, err := l.project.Workspace().ResolveBundle(DefaultLauncherBSN, "")
		if err != nil {
			return nil, err
		}
		if jar != "" {
			runpath = append(runpath, jar)
		}
	}
	return runpath, nil
}

// Command returns the JVM command line.
func (l *ProjectLauncher) Command() ([]string, error) {
	p := l.project
	vm, err := p.RunVM()
	if err != nil {
		return nil, err
	}
	args, err := p.RunProgramArgs()
	if err != nil {
		return nil, err
	}
	classpath, err := l.Classpath()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(l.propertiesFile)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", l.propertiesFile, err)
	}

	cmd := []string{l.Java}
	cmd = append(cmd, vm...)
	cmd = append(cmd, "-D"+launch.LauncherPropertiesKey+"="+abs)
	if len(classpath) > 0 {
		cmd = append(cmd, "-cp", strings.Join(classpath, string(os.PathListSeparator)))
	}
	cmd = append(cmd, MainClass)
	return append(cmd, args...), nil
}

// Launch prepares the launch and runs the JVM in the project directory. It
// returns the exit code of the JVM. With -genlaunchprop nothing is started
// and the exit code is 0.
func (l *ProjectLauncher) Launch(ctx context.Context) (int, error) {
	if err := l.Prepare(); err != nil {
		return -1, err
	}
	p := l.project
	if p.IsGenLaunchProp() {
		slog.Info("generated launch properties", "project", p.Name(), "file", l.propertiesFile)
		return 0, nil
	}

	argv, err := l.Command()
	if err != nil {
		return -1, err
	}
	p.Trace("running %s", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = p.Base()
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	err = cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("launch %s: %w", p.Name(), err)
}

// Cleanup removes the temporary launch properties file.
func (l *ProjectLauncher) Cleanup() error {
	if !l.temporary {
		return nil
	}
	l.project.Trace("deleting temporary launch file %s", l.propertiesFile)
	if err := os.Remove(l.propertiesFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove launch properties: %w", err)
	}
	return nil
}
