// SPDX-License-Identifier: MPL-2.0

package props

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
	"time"

	"github.com/magiconair/properties"
)

type (
	// MacroFunc implements a ${name;arg;...} macro. args[0] is the macro name.
	// The processor is the one in which the expansion takes place, which may be
	// a descendant of the processor the function was registered on.
	MacroFunc func(p *Processor, args []string) (string, error)

	// Processor is a scope of properties with an optional parent scope.
	// Lookups fall through to the parent when a key is not defined locally, and
	// values are macro-expanded in the scope of the processor doing the lookup.
	Processor struct {
		mu       sync.RWMutex
		parent   *Processor
		base     string
		props    *properties.Properties
		mainFile string
		files    []trackedFile
		scopes   map[string]*properties.Properties
		macros   map[string]MacroFunc
		errors   []string
		warnings []string
	}

	trackedFile struct {
		path    string
		modTime time.Time
	}
)

// New creates a processor with the given parent (may be nil) rooted at base.
// Relative file names are resolved against base.
func New(parent *Processor, base string) *Processor {
	return &Processor{
		parent: parent,
		base:   base,
		props:  newProperties(),
		scopes: make(map[string]*properties.Properties),
		macros: make(map[string]MacroFunc),
	}
}

// FromMap creates a parentless processor holding the given properties.
func FromMap(m map[string]string) *Processor {
	p := New(nil, "")
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

func newProperties() *properties.Properties {
	pp := properties.NewProperties()
	pp.DisableExpansion = true
	return pp
}

func parse(data []byte) (*properties.Properties, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	return l.LoadBytes(data)
}

// Parent returns the parent scope, or nil.
func (p *Processor) Parent() *Processor {
	return p.parent
}

// Base returns the base directory of the processor.
func (p *Processor) Base() string {
	return p.base
}

// PropertiesFile returns the main file loaded with LoadFile, if any.
func (p *Processor) PropertiesFile() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mainFile
}

// LoadFile replaces the local properties with the contents of path. The file is
// tracked for Refresh even when it does not exist yet, in which case an error
// wrapping fs.ErrNotExist is returned and the local properties are cleared.
func (p *Processor) LoadFile(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mainFile = path
	p.props = newProperties()
	p.scopes = make(map[string]*properties.Properties)
	p.files = []trackedFile{{path: path, modTime: modTime(path)}}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	parsed, err := parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	p.props = parsed
	return nil
}

// LoadString merges properties in properties-file syntax into the local scope.
func (p *Processor) LoadString(text string) error {
	parsed, err := parse([]byte(text))
	if err != nil {
		return fmt.Errorf("parse properties: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.props.Merge(parsed)
	return nil
}

// Include merges the properties of path into the local scope and records them
// under the named scope. Existing keys are kept unless overwrite is set.
func (p *Processor) Include(path, scope string, overwrite bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("include %s: %w", path, err)
	}
	parsed, err := parse(data)
	if err != nil {
		return fmt.Errorf("include %s: %w", path, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range parsed.Keys() {
		if _, exists := p.props.Get(k); exists && !overwrite {
			continue
		}
		v, _ := parsed.Get(k)
		p.props.Set(k, v) //nolint:errcheck // expansion is disabled so Set cannot fail
	}
	if scope != "" {
		p.scopes[scope] = parsed
	}
	p.files = append(p.files, trackedFile{path: path, modTime: modTime(path)})
	return nil
}

// Scope returns the raw properties recorded by Include under name.
func (p *Processor) Scope(name string) (map[string]string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.scopes[name]
	if !ok {
		return nil, false
	}
	return s.Map(), true
}

// ScopeNames returns the names of the included scopes, sorted.
func (p *Processor) ScopeNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.scopes))
	for n := range p.scopes {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Changed reports whether any tracked file was modified, created or deleted
// since it was read.
func (p *Processor) Changed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, f := range p.files {
		if !modTime(f.path).Equal(f.modTime) {
			return true
		}
	}
	return false
}

// Refresh reloads the main file when a tracked file changed. Included scopes are
// dropped and must be included again by the owner. It reports whether a reload
// happened.
func (p *Processor) Refresh() bool {
	if !p.Changed() {
		return false
	}
	p.mu.RLock()
	main := p.mainFile
	p.mu.RUnlock()

	p.ClearDiagnostics()
	if main == "" {
		return true
	}
	if err := p.LoadFile(main); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.Warning("properties file %s no longer exists", main)
		} else {
			p.Error("refresh %s: %v", main, err)
		}
	}
	return true
}

// Set defines a local property.
func (p *Processor) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.props.Set(key, value) //nolint:errcheck // expansion is disabled so Set cannot fail
}

// Unset removes a local property.
func (p *Processor) Unset(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.props.Delete(key)
}

// Raw returns the unexpanded value of key, searching parent scopes.
func (p *Processor) Raw(key string) (string, bool) {
	for s := p; s != nil; s = s.parent {
		s.mu.RLock()
		v, ok := s.props.Get(key)
		s.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return "", false
}

// Lookup returns the expanded value of key and whether it is defined.
func (p *Processor) Lookup(key string) (string, bool) {
	v, ok := p.Raw(key)
	if !ok {
		return "", false
	}
	return p.expand(v, []string{key}, 0), true
}

// Get returns the expanded value of key, or "" when undefined.
func (p *Processor) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// GetOr returns the expanded value of key, or def when undefined.
func (p *Processor) GetOr(key, def string) string {
	if v, ok := p.Lookup(key); ok {
		return v
	}
	return def
}

// IsTrue reports whether the expanded value of key is true in bnd terms.
func (p *Processor) IsTrue(key string) bool {
	return IsTrue(p.Get(key))
}

// Keys returns the local keys in declaration order.
func (p *Processor) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.props.Keys()
}

// AllKeys returns the keys of this scope and all parents, sorted.
func (p *Processor) AllKeys() []string {
	seen := make(map[string]struct{})
	for s := p; s != nil; s = s.parent {
		for _, k := range s.Keys() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Flattened returns every visible property expanded in this scope.
func (p *Processor) Flattened() map[string]string {
	out := make(map[string]string)
	for _, k := range p.AllKeys() {
		out[k] = p.Get(k)
	}
	return out
}

// File resolves name against the base directory.
func (p *Processor) File(name string) string {
	if filepath.IsAbs(name) || p.base == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(p.base, name)
}

// AddMacro registers a macro function on this scope. Children inherit it.
func (p *Processor) AddMacro(name string, fn MacroFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.macros[name] = fn
}

func (p *Processor) macro(name string) (MacroFunc, bool) {
	for s := p; s != nil; s = s.parent {
		s.mu.RLock()
		fn, ok := s.macros[name]
		s.mu.RUnlock()
		if ok {
			return fn, true
		}
	}
	fn, ok := builtins[name]
	return fn, ok
}

// Error records an error.
func (p *Processor) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Debug("properties error", "base", p.base, "message", msg)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, msg)
}

// Warning records a warning.
func (p *Processor) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Debug("properties warning", "base", p.base, "message", msg)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warnings = append(p.warnings, msg)
}

// Errors returns a copy of the recorded errors.
func (p *Processor) Errors() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.errors)
}

// Warnings returns a copy of the recorded warnings.
func (p *Processor) Warnings() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.warnings)
}

// IsOK reports whether no errors were recorded.
func (p *Processor) IsOK() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.errors) == 0
}

// ClearDiagnostics drops recorded errors and warnings.
func (p *Processor) ClearDiagnostics() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = nil
	p.warnings = nil
}

// IsTrue implements bnd truthiness: absent, empty and "false" are false,
// anything else is true.
func IsTrue(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	return !strings.EqualFold(value, "false")
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
