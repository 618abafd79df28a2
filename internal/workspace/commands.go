// SPDX-License-Identifier: MPL-2.0

package workspace

import "maps"

type (
	// Action is a command contributed to project menus.
	Action interface {
		Execute(p *Project, action string) error
	}

	// ActionFunc adapts a function to the Action interface.
	ActionFunc func(p *Project, action string) error
)

// Execute calls f(p, action).
func (f ActionFunc) Execute(p *Project, action string) error {
	return f(p, action)
}

// AddCommand registers action under label, replacing any earlier one.
func (ws *Workspace) AddCommand(label string, action Action) {
	ws.cmdMu.Lock()
	defer ws.cmdMu.Unlock()
	ws.commands[label] = action
}

// RemoveCommand drops the command registered under label.
func (ws *Workspace) RemoveCommand(label string) {
	ws.cmdMu.Lock()
	defer ws.cmdMu.Unlock()
	delete(ws.commands, label)
}

// FillActions copies the registered commands into all.
func (ws *Workspace) FillActions(all map[string]Action) {
	ws.cmdMu.Lock()
	defer ws.cmdMu.Unlock()
	maps.Copy(all, ws.commands)
}
