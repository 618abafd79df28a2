// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"bytes"
	_ "embed"
	"crypto/sha1" //nolint:gosec // the jpm layout addresses files by SHA-1
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/zip"

	"github.com/bndkit/bndkit/internal/workspace"
	"github.com/bndkit/bndkit/pkg/header"
	"github.com/bndkit/bndkit/pkg/launch"
	"github.com/bndkit/bndkit/pkg/manifest"
)

const (
	// MainClass starts a launch from a properties file.
	MainClass = "aQute.launcher.Launcher"
	// EmbeddedMainClass starts a launch from inside an executable JAR.
	EmbeddedMainClass = "aQute.launcher.embedded.EmbeddedLauncher"
	// EmbeddedLauncherPath is the archive path of the embedded launcher class.
	EmbeddedLauncherPath = "aQute/launcher/embedded/EmbeddedLauncher.class"

	EmbeddedRunpathHeader = "Embedded-Runpath"
	JPMClasspathHeader    = "JPM-Classpath"
	JPMRunbundlesHeader   = "JPM-Runbundles"

	// JPMRepo is the placeholder the installer replaces with its store.
	JPMRepo = "${JPMREPO}"

	jarDir = "jar/"
)

// embeddedLauncherClass is the class written when neither the options nor
// the runpath supply one. It copies the jar/ entries named by
// Embedded-Runpath to temporary files and starts MainClass from them.
//
//go:embed EmbeddedLauncher.class
var embeddedLauncherClass []byte

type (
	// Packager writes executable JARs for a project.
	Packager struct {
		project       *workspace.Project
		launcherClass []byte
		now           func() time.Time
	}

	// PackagerOption configures a Packager.
	PackagerOption func(*Packager)

	// layout is the computed content of an executable JAR.
	layout struct {
		jpm       bool
		runpath   []string
		classpath []string
		bundles   []string
		files     map[string]string
		order     []string
		shas      []string
		bundleSHA []string
	}
)

// WithLauncherClass supplies the embedded launcher class, taking precedence
// over the runpath and the built-in class.
func WithLauncherClass(class []byte) PackagerOption {
	return func(p *Packager) {
		p.launcherClass = class
	}
}

// NewPackager returns a packager for p.
func NewPackager(p *workspace.Project, opts ...PackagerOption) *Packager {
	pk := &Packager{project: p, now: time.Now}
	for _, opt := range opts {
		opt(pk)
	}
	return pk
}

// Export writes the executable JAR to path. A partial file is removed when
// writing fails.
func (pk *Packager) Export(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return pk.Executable(f)
}

// Executable writes the executable JAR to w. Entries are written in the
// order manifest, launcher class, launch properties, then the embedded JARs.
func (pk *Packager) Executable(w io.Writer) error {
	p := pk.project
	l, err := pk.layout()
	if err != nil {
		return err
	}

	class, err := pk.findLauncherClass(l)
	if err != nil {
		return err
	}

	c, err := p.LaunchConstants(l.bundles)
	if err != nil {
		return err
	}
	c.Embedded = !l.jpm
	c.StorageDir = ""
	var props bytes.Buffer
	if err := c.Store(&props, ""); err != nil {
		return err
	}

	m, err := pk.manifest(l)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	now := pk.now()
	if err := writeEntry(zw, manifest.Path, m.Bytes(), now); err != nil {
		return err
	}
	if err := writeEntry(zw, EmbeddedLauncherPath, class, now); err != nil {
		return err
	}
	if err := writeEntry(zw, launch.DefaultLauncherProperties, props.Bytes(), now); err != nil {
		return err
	}
	for _, name := range l.order {
		if err := copyFile(zw, name, l.files[name]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish executable: %w", err)
	}
	slog.Debug("wrote executable", "project", p.Name(), "jpm", l.jpm, "entries", len(l.order)+3)
	return nil
}

// layout collects the runpath and run bundles. Runpath entries that are not
// files are skipped; run bundles that are not files are project errors.
func (pk *Packager) layout() (*layout, error) {
	p := pk.project
	params, err := header.Parse(p.Package())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: -package: %w", workspace.ErrMalformedProperty, p.Name(), err)
	}
	l := &layout{jpm: params.Contains("jpm"), files: make(map[string]string)}

	runpath, err := p.Runpath()
	if err != nil {
		return nil, err
	}
	l.runpath = runpath
	for _, path := range runpath {
		if !isFile(path) {
			p.Trace("skipping runpath entry %s, not a file", path)
			continue
		}
		if l.jpm {
			sha, err := sha1File(path)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(l.shas, sha) {
				l.shas = append(l.shas, sha)
			}
			continue
		}
		name := l.add(path)
		if !slices.Contains(l.classpath, name) {
			l.classpath = append(l.classpath, name)
		}
	}

	runbundles, err := p.Runbundles()
	if err != nil {
		return nil, err
	}
	for _, path := range runbundles {
		if !isFile(path) {
			p.Properties().Error("Invalid entry in -runbundles %s", path)
			continue
		}
		if l.jpm {
			sha, err := sha1File(path)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(l.bundleSHA, sha) {
				l.bundleSHA = append(l.bundleSHA, sha)
			}
			l.bundles = append(l.bundles, JPMRepo+"/"+sha)
			continue
		}
		l.bundles = append(l.bundles, l.add(path))
	}
	return l, nil
}

// add places path under jar/. A later file with the same base name replaces
// an earlier one.
func (l *layout) add(path string) string {
	name := jarDir + filepath.Base(path)
	if _, ok := l.files[name]; !ok {
		l.order = append(l.order, name)
	}
	l.files[name] = path
	return name
}

// findLauncherClass returns the embedded launcher class bytes: the option,
// else the first runpath JAR holding the class, else the built-in class.
func (pk *Packager) findLauncherClass(l *layout) ([]byte, error) {
	if pk.launcherClass != nil {
		return pk.launcherClass, nil
	}
	for _, path := range l.runpath {
		if !isFile(path) {
			continue
		}
		data, err := readEntry(path, EmbeddedLauncherPath)
		if err != nil {
			slog.Debug("no launcher class", "jar", path, "error", err)
			continue
		}
		pk.project.Trace("launcher class from %s", path)
		return data, nil
	}
	return embeddedLauncherClass, nil
}

// manifest builds the main attributes: project headers starting with an
// upper case letter, minus -removeheaders selections, then the layout
// attributes.
func (pk *Packager) manifest(l *layout) (*manifest.Manifest, error) {
	p := pk.project
	m := manifest.New()
	flat := p.Flattened()
	for _, k := range slices.Sorted(maps.Keys(flat)) {
		if r := []rune(k); len(r) > 0 && unicode.IsUpper(r[0]) {
			m.Main.Set(k, flat[k])
		}
	}
	remove, err := p.RemoveHeaders()
	if err != nil {
		return nil, err
	}
	for _, name := range remove.Select(m.Main.Names(), false) {
		m.Main.Delete(name)
	}

	if l.jpm {
		m.Main.Set(manifest.MainClass, MainClass)
		m.Main.Set(JPMClasspathHeader, strings.Join(l.shas, ","))
		m.Main.Set(JPMRunbundlesHeader, strings.Join(l.bundleSHA, ","))
	} else {
		m.Main.Set(manifest.MainClass, EmbeddedMainClass)
		m.Main.Set(EmbeddedRunpathHeader, strings.Join(l.classpath, ","))
	}
	return m, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, mod time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// copyFile stores a JAR uncompressed; its content is compressed already.
func copyFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: info.ModTime()})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return nil
}

func readEntry(jar, name string) ([]byte, error) {
	zr, err := zip.OpenReader(jar)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, os.ErrNotExist
}

func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha1.New() //nolint:gosec // content address, not a security boundary
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
