// SPDX-License-Identifier: MPL-2.0

// Package manifest reads and writes JAR manifests (META-INF/MANIFEST.MF).
package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
)

const (
	// Path is the location of the manifest inside a JAR.
	Path = "META-INF/MANIFEST.MF"

	// Version is the Manifest-Version header name.
	Version = "Manifest-Version"
	// MainClass is the Main-Class header name.
	MainClass = "Main-Class"

	maxLineBytes = 72
)

// ErrNoManifest is returned when a JAR has no manifest entry.
var ErrNoManifest = errors.New("no manifest in archive")

type (
	// Attributes is an ordered set of manifest headers. Names compare
	// case-insensitively, as in the JAR specification.
	Attributes struct {
		names  []string
		values map[string]string
	}

	// Manifest holds the main attributes and the named per-entry sections.
	Manifest struct {
		Main     *Attributes
		sections []string
		entries  map[string]*Attributes
	}
)

// NewAttributes returns an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]string)}
}

// Set defines or replaces a header. The first spelling of a name is kept.
func (a *Attributes) Set(name, value string) {
	k := strings.ToLower(name)
	if _, ok := a.values[k]; !ok {
		a.names = append(a.names, name)
	}
	a.values[k] = value
}

// Get returns the value of a header.
func (a *Attributes) Get(name string) (string, bool) {
	v, ok := a.values[strings.ToLower(name)]
	return v, ok
}

// Delete removes a header.
func (a *Attributes) Delete(name string) {
	k := strings.ToLower(name)
	if _, ok := a.values[k]; !ok {
		return
	}
	delete(a.values, k)
	for i, n := range a.names {
		if strings.ToLower(n) == k {
			a.names = append(a.names[:i], a.names[i+1:]...)
			break
		}
	}
}

// Names returns header names in insertion order.
func (a *Attributes) Names() []string {
	return append([]string(nil), a.names...)
}

// Len returns the number of headers.
func (a *Attributes) Len() int {
	return len(a.names)
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{Main: NewAttributes(), entries: make(map[string]*Attributes)}
}

// Entry returns the attributes of a named section, creating it on demand.
func (m *Manifest) Entry(name string) *Attributes {
	if a, ok := m.entries[name]; ok {
		return a
	}
	a := NewAttributes()
	m.entries[name] = a
	m.sections = append(m.sections, name)
	return a
}

// Entries returns the names of the per-entry sections in order.
func (m *Manifest) Entries() []string {
	return append([]string(nil), m.sections...)
}

// Write serializes the manifest. Manifest-Version is written first and
// defaults to 1.0.
func (m *Manifest) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	version, ok := m.Main.Get(Version)
	if !ok {
		version = "1.0"
	}
	writeHeader(bw, Version, version)
	for _, name := range m.Main.names {
		if strings.EqualFold(name, Version) {
			continue
		}
		v, _ := m.Main.Get(name)
		writeHeader(bw, name, v)
	}
	bw.WriteString("\r\n")

	for _, section := range m.sections {
		writeHeader(bw, "Name", section)
		attrs := m.entries[section]
		for _, name := range attrs.names {
			v, _ := attrs.Get(name)
			writeHeader(bw, name, v)
		}
		bw.WriteString("\r\n")
	}
	return bw.Flush()
}

// Bytes returns the serialized manifest.
func (m *Manifest) Bytes() []byte {
	var buf bytes.Buffer
	_ = m.Write(&buf) // writes to a bytes.Buffer do not fail
	return buf.Bytes()
}

// writeHeader writes "name: value" wrapped at 72 bytes per line. Continuation
// lines start with a single space. Multi-byte characters are never split.
func writeHeader(w *bufio.Writer, name, value string) {
	line := name + ": " + value
	limit := maxLineBytes
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		w.WriteString(line[:cut])
		w.WriteString("\r\n ")
		line = line[cut:]
		limit = maxLineBytes - 1
	}
	w.WriteString(line)
	w.WriteString("\r\n")
}

// Read parses a manifest.
func Read(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))

	m := New()
	current := m.Main
	var lastName string
	inMain := true

	for n, raw := range strings.Split(string(data), "\n") {
		if raw == "" {
			inMain = false
			current = nil
			lastName = ""
			continue
		}
		if raw[0] == ' ' {
			if current == nil || lastName == "" {
				return nil, fmt.Errorf("manifest line %d: continuation without header", n+1)
			}
			v, _ := current.Get(lastName)
			current.Set(lastName, v+raw[1:])
			continue
		}
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("manifest line %d: missing ':' in %q", n+1, raw)
		}
		value = strings.TrimPrefix(value, " ")
		if current == nil {
			if inMain || !strings.EqualFold(name, "Name") {
				return nil, fmt.Errorf("manifest line %d: section must start with Name", n+1)
			}
			current = m.Entry(value)
			lastName = ""
			continue
		}
		current.Set(name, value)
		lastName = name
	}
	return m, nil
}

// FromZip reads the manifest of an opened archive.
func FromZip(zr *zip.Reader) (*Manifest, error) {
	for _, f := range zr.File {
		if f.Name != Path {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		defer rc.Close()
		return Read(rc)
	}
	return nil, ErrNoManifest
}

// FromJar reads the manifest of the JAR at path.
func FromJar(path string) (*Manifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()
	m, err := FromZip(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
