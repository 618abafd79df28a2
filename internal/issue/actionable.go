// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// Scope names the kind of bnd resource an ActionableError is about.
type Scope int

const (
	// ScopeWorkspace is a workspace root directory.
	ScopeWorkspace Scope = iota + 1
	// ScopeProject is a project, named by its Bundle-SymbolicName.
	ScopeProject
	// ScopeSettings is the per-user settings.json.
	ScopeSettings
	// ScopeRepository is a plugin repository or the workspace cache.
	ScopeRepository
)

var scopeNames = map[Scope]string{
	ScopeWorkspace:  "workspace",
	ScopeProject:    "project",
	ScopeSettings:   "settings",
	ScopeRepository: "repository",
}

// String returns the lower case scope name, or "" for the zero Scope.
func (s Scope) String() string {
	return scopeNames[s]
}

type (
	// ActionableError ties a failure to the workspace, project or settings
	// file it happened in, with hints for the user and, optionally, the
	// catalog issue that explains it at length.
	//
	//	err := issue.About(issue.ScopeWorkspace, "/src/app").
	//		Doing("open").
	//		Hint("Create a cnf/ directory at the workspace root").
	//		Guide(issue.WorkspaceNotFoundId).
	//		Wrap(cause).
	//		Err()
	ActionableError struct {
		Scope    Scope
		Resource string
		// Operation is a bare verb such as "open" or "export".
		Operation string
		Hints     []string
		// Guide is the catalog issue to render before the error (optional).
		Guide Id
		Cause error
	}

	// ErrorContext builds an ActionableError incrementally. Each Err call
	// snapshots the context, so one builder can produce several errors.
	ErrorContext struct {
		scope     Scope
		resource  string
		operation string
		hints     []string
		guide     Id
		cause     error
	}
)

// About starts an ErrorContext for resource of the given scope.
func About(scope Scope, resource string) *ErrorContext {
	return &ErrorContext{scope: scope, resource: resource}
}

// Wrap attaches scope, resource and operation to err. It returns nil for a
// nil err.
func Wrap(err error, scope Scope, resource, operation string) error {
	if err == nil {
		return nil
	}
	return &ActionableError{Scope: scope, Resource: resource, Operation: operation, Cause: err}
}

// Error renders "<scope> <resource>: cannot <operation>: <cause>", dropping
// the parts that are unset.
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString(e.subject())
	if e.Operation != "" {
		if msg.Len() > 0 {
			msg.WriteString(": ")
		}
		msg.WriteString("cannot ")
		msg.WriteString(e.Operation)
	}
	if e.Cause != nil {
		if msg.Len() > 0 {
			msg.WriteString(": ")
		}
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

func (e *ActionableError) subject() string {
	switch {
	case e.Scope != 0 && e.Resource != "":
		return e.Scope.String() + " " + e.Resource
	case e.Scope != 0:
		return e.Scope.String()
	default:
		return e.Resource
	}
}

// Unwrap returns the underlying cause error for use with errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error and a numbered "Try:" list of hints. In verbose
// mode the causes below this error are listed too, skipping the first one
// since Error already prints it.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Hints) > 0 {
		msg.WriteString("\n\nTry:")
		for i, hint := range e.Hints {
			fmt.Fprintf(&msg, "\n  %d) %s", i+1, hint)
		}
	}

	if verbose && e.Cause != nil {
		if next := errors.Unwrap(e.Cause); next != nil {
			msg.WriteString("\n\nCaused by:")
			for err := next; err != nil; err = errors.Unwrap(err) {
				msg.WriteString("\n  - ")
				msg.WriteString(err.Error())
			}
		}
	}
	return msg.String()
}

// Doing sets the failed operation.
func (c *ErrorContext) Doing(op string) *ErrorContext {
	c.operation = op
	return c
}

// Hint adds remediation hints. Can be called multiple times.
func (c *ErrorContext) Hint(hints ...string) *ErrorContext {
	c.hints = append(c.hints, hints...)
	return c
}

// Guide links the catalog issue rendered alongside the error.
func (c *ErrorContext) Guide(id Id) *ErrorContext {
	c.guide = id
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Err returns the ActionableError, or nil when neither a scope nor an
// operation was given.
func (c *ErrorContext) Err() error {
	if c.scope == 0 && c.operation == "" {
		return nil
	}
	return &ActionableError{
		Scope:     c.scope,
		Resource:  c.resource,
		Operation: c.operation,
		Hints:     append([]string(nil), c.hints...),
		Guide:     c.guide,
		Cause:     c.cause,
	}
}
