// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	_ "embed"
	"sync"

	"github.com/bndkit/bndkit/pkg/props"
)

//go:embed defaults.bnd
var defaultsBnd string

// defaults is the property scope every workspace inherits from. It is parsed
// once per process.
var defaults = sync.OnceValue(func() *props.Processor {
	p := props.New(nil, "")
	if err := p.LoadString(defaultsBnd); err != nil {
		p.Error("load defaults: %v", err)
	}
	return p
})

// Defaults returns the shared default properties.
func Defaults() *props.Processor {
	return defaults()
}
