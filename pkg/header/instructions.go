// SPDX-License-Identifier: MPL-2.0

package header

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type (
	// Instruction is a single selection pattern. A leading '!' negates it.
	Instruction struct {
		Pattern string
		Negated bool
	}

	// Instructions is an ordered list of selection patterns, as used by
	// headers like -removeheaders. The first instruction that matches a name
	// decides whether the name is selected.
	Instructions []Instruction
)

// ParseInstructions parses a comma separated list of wildcard patterns.
func ParseInstructions(text string) (Instructions, error) {
	params, err := Parse(text)
	if err != nil {
		return nil, err
	}
	out := make(Instructions, 0, len(params))
	for _, c := range params {
		in := Instruction{Pattern: c.Key}
		if strings.HasPrefix(in.Pattern, "!") {
			in.Negated = true
			in.Pattern = in.Pattern[1:]
		}
		if !doublestar.ValidatePattern(in.Pattern) {
			return nil, fmt.Errorf("invalid instruction pattern %q", c.Key)
		}
		out = append(out, in)
	}
	return out, nil
}

// Matches reports whether the instruction pattern matches name.
func (in Instruction) Matches(name string) bool {
	return doublestar.MatchUnvalidated(in.Pattern, name)
}

// Select returns the names selected by the instructions, in input order.
// When the list is empty, every name is selected if emptyIsAll is set and
// none otherwise.
func (is Instructions) Select(names []string, emptyIsAll bool) []string {
	if len(is) == 0 {
		if emptyIsAll {
			return append([]string(nil), names...)
		}
		return nil
	}
	var out []string
	for _, name := range names {
		for _, in := range is {
			if !in.Matches(name) {
				continue
			}
			if !in.Negated {
				out = append(out, name)
			}
			break
		}
	}
	return out
}
