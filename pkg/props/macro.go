// SPDX-License-Identifier: MPL-2.0

package props

import (
	"os"
	"slices"
	"strings"
)

// maxMacroDepth bounds nested and recursive expansion.
const maxMacroDepth = 100

var closers = map[byte]byte{
	'{': '}',
	'(': ')',
	'[': ']',
}

// builtins are the macro functions every scope knows. ${def} is handled by
// replace because it expands a property.
var builtins = map[string]MacroFunc{
	"env":     macroEnv,
	"basedir": macroBasedir,
	"join":    macroJoin,
	"if":      macroIf,
	"uc":      macroUpper,
	"lc":      macroLower,
}

// Expand replaces macros in s. Unknown macros are left in place.
func (p *Processor) Expand(s string) string {
	return p.expand(s, nil, 0)
}

// expand replaces the macros of s. active holds the properties whose values
// are being expanded; a reference back to one of them is left in place.
func (p *Processor) expand(s string, active []string, depth int) string {
	if !strings.Contains(s, "$") {
		return s
	}
	if depth > maxMacroDepth {
		p.Warning("exceeded macro depth %d while expanding %q", maxMacroDepth, s)
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		closer, ok := closers[s[i+1]]
		if !ok {
			sb.WriteByte(c)
			continue
		}
		end := matchingBracket(s, i+1, s[i+1], closer)
		if end < 0 {
			sb.WriteByte(c)
			continue
		}

		inner := p.expand(s[i+2:end], active, depth+1)
		if v, ok := p.replace(inner, active, depth+1); ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(s[i : end+1])
		}
		i = end
	}
	return sb.String()
}

// matchingBracket returns the index of the bracket closing the one at open.
func matchingBracket(s string, open int, opener, closer byte) int {
	nesting := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case opener:
			nesting++
		case closer:
			nesting--
			if nesting == 0 {
				return i
			}
		}
	}
	return -1
}

func (p *Processor) replace(body string, active []string, depth int) (string, bool) {
	args := strings.Split(body, ";")
	name := args[0]
	if name == "" {
		return "", false
	}

	if len(args) == 1 {
		if v, ok := p.reference(name, active, depth); ok {
			return v, true
		}
		if _, defined := p.Raw(name); defined {
			return "", false
		}
	}

	if name == "def" {
		if len(args) < 2 {
			p.Error("macro ${%s}: %v", body, errUsage("${def;<name>[;<default>]}"))
			return "", false
		}
		if _, defined := p.Raw(args[1]); defined {
			return p.reference(args[1], active, depth)
		}
		if len(args) > 2 {
			return args[2], true
		}
		return "", true
	}

	fn, ok := p.macro(name)
	if !ok {
		return "", false
	}
	v, err := fn(p, args)
	if err != nil {
		p.Error("macro ${%s}: %v", body, err)
		return "", false
	}
	return v, true
}

// reference expands the property key. It fails when key is undefined or
// already being expanded.
func (p *Processor) reference(key string, active []string, depth int) (string, bool) {
	raw, ok := p.Raw(key)
	if !ok {
		return "", false
	}
	if slices.Contains(active, key) {
		p.Warning("infinite recursion in macro ${%s}", key)
		return "", false
	}
	return p.expand(raw, append(active[:len(active):len(active)], key), depth+1), true
}

func macroEnv(_ *Processor, args []string) (string, error) {
	if len(args) < 2 {
		return "", errUsage("${env;<name>[;<default>]}")
	}
	if v, ok := os.LookupEnv(args[1]); ok {
		return v, nil
	}
	if len(args) > 2 {
		return args[2], nil
	}
	return "", nil
}

func macroBasedir(p *Processor, _ []string) (string, error) {
	return p.Base(), nil
}

func macroJoin(_ *Processor, args []string) (string, error) {
	var parts []string
	for _, a := range args[1:] {
		for _, e := range strings.Split(a, ",") {
			if e = strings.TrimSpace(e); e != "" {
				parts = append(parts, e)
			}
		}
	}
	return strings.Join(parts, ","), nil
}

func macroIf(_ *Processor, args []string) (string, error) {
	if len(args) < 3 {
		return "", errUsage("${if;<condition>;<then>[;<else>]}")
	}
	if IsTrue(args[1]) {
		return args[2], nil
	}
	if len(args) > 3 {
		return args[3], nil
	}
	return "", nil
}

func macroUpper(_ *Processor, args []string) (string, error) {
	return strings.ToUpper(strings.Join(args[1:], ";")), nil
}

func macroLower(_ *Processor, args []string) (string, error) {
	return strings.ToLower(strings.Join(args[1:], ";")), nil
}

type usageError string

func (e usageError) Error() string {
	return "usage: " + string(e)
}

func errUsage(usage string) error {
	return usageError(usage)
}
