// SPDX-License-Identifier: MPL-2.0

// Package props implements hierarchical .bnd property scopes with macro expansion.
//
// A Processor holds properties read from a file in Java properties syntax and
// falls back to its parent for undefined keys. Values are expanded on read:
// ${key} references another property and ${name;arg;...} calls a macro function.
// Functions are registered per scope with AddMacro and inherited by children.
// Problems found while loading or expanding are recorded as errors or warnings
// rather than returned, so a caller can decide whether a scope is usable.
package props
