// SPDX-License-Identifier: MPL-2.0

package header

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedQuote is returned when a quoted value is not closed before the
// end of the header.
var ErrUnterminatedQuote = errors.New("unterminated quote")

type (
	// Attrs holds the attributes and directives of a clause in declaration order.
	// Directives are stored with a trailing colon in their name (e.g. "resolution:").
	Attrs struct {
		names  []string
		values map[string]string
	}

	// Clause is a single element of a header: a key with its attributes.
	Clause struct {
		Key   string
		Attrs Attrs
	}

	// Parameters is an ordered list of clauses. Duplicate keys are kept in
	// declaration order.
	Parameters []Clause
)

// Get returns the value of the named attribute.
func (a Attrs) Get(name string) (string, bool) {
	v, ok := a.values[name]
	return v, ok
}

// GetOr returns the value of the named attribute or def when absent.
func (a Attrs) GetOr(name, def string) string {
	if v, ok := a.values[name]; ok {
		return v
	}
	return def
}

// Names returns the attribute names in declaration order.
func (a Attrs) Names() []string {
	return append([]string(nil), a.names...)
}

// Len returns the number of attributes.
func (a Attrs) Len() int {
	return len(a.names)
}

func (a *Attrs) set(name, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = value
}

// Parse parses an OSGi style header such as
//
//	a;depth=2, b, "c d";version="[1,2)"
//
// A clause may name several keys sharing the same attributes ("a;b;x=1"),
// which yields one clause per key.
func Parse(text string) (Parameters, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	clauses, err := splitQuoted(text, ',')
	if err != nil {
		return nil, fmt.Errorf("parse header %q: %w", text, err)
	}

	var params Parameters
	for _, raw := range clauses {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts, err := splitQuoted(raw, ';')
		if err != nil {
			return nil, fmt.Errorf("parse header %q: %w", text, err)
		}

		var keys []string
		var attrs Attrs
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, isAttr := splitAttr(part)
			if !isAttr {
				keys = append(keys, unquote(part))
				continue
			}
			attrs.set(name, unquote(value))
		}
		for _, k := range keys {
			params = append(params, Clause{Key: k, Attrs: attrs})
		}
	}
	return params, nil
}

// MustParse is like Parse but panics on malformed input. It is meant for
// constants in tests and package initialization.
func MustParse(text string) Parameters {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Contains reports whether any clause has the given key.
func (p Parameters) Contains(key string) bool {
	for _, c := range p {
		if c.Key == key {
			return true
		}
	}
	return false
}

// Keys returns the clause keys in order.
func (p Parameters) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, c := range p {
		keys = append(keys, c.Key)
	}
	return keys
}

// Lookup returns the first clause with the given key.
func (p Parameters) Lookup(key string) (Clause, bool) {
	for _, c := range p {
		if c.Key == key {
			return c, true
		}
	}
	return Clause{}, false
}

// String prints the clauses back in header syntax. Values containing
// separators are quoted.
func (p Parameters) String() string {
	var sb strings.Builder
	for i, c := range p {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c.Key)
		for _, name := range c.Attrs.names {
			sb.WriteByte(';')
			sb.WriteString(name)
			sb.WriteByte('=')
			sb.WriteString(quoteIfNeeded(c.Attrs.values[name]))
		}
	}
	return sb.String()
}

// ParseProperties parses a property list header ("a=1, b=\"x y\"") into a map.
// Entries without a value map to the empty string.
func ParseProperties(text string) (map[string]string, error) {
	out := make(map[string]string)
	text = strings.TrimSpace(text)
	if text == "" {
		return out, nil
	}
	entries, err := splitQuoted(text, ',')
	if err != nil {
		return nil, fmt.Errorf("parse properties %q: %w", text, err)
	}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			out[unquote(strings.TrimSpace(e))] = ""
			continue
		}
		out[unquote(strings.TrimSpace(k))] = unquote(strings.TrimSpace(v))
	}
	return out, nil
}

// Split splits a comma separated list, honoring quotes, and trims each element.
// Empty elements are dropped.
func Split(text string) []string {
	parts, err := splitQuoted(text, ',')
	if err != nil {
		parts = strings.Split(text, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitQuoted(s string, sep byte) ([]string, error) {
	var out []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, ErrUnterminatedQuote
	}
	return append(out, s[start:]), nil
}

// splitAttr splits "name=value" or "name:=value". Directives keep a trailing
// colon on their name.
func splitAttr(part string) (name, value string, ok bool) {
	eq := indexUnquoted(part, '=')
	if eq < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(part[:eq])
	value = strings.TrimSpace(part[eq+1:])
	// "name:type=value" typed attributes drop the type.
	if i := strings.IndexByte(name, ':'); i >= 0 && i < len(name)-1 {
		name = name[:i]
	}
	return name, value, name != ""
}

func indexUnquoted(s string, c byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case c:
			if !inQuote {
				return i
			}
		}
	}
	return -1
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
		return strings.ReplaceAll(s, `\"`, `"`)
	}
	return s
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",;=\" ") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}
