// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

type (
	// Listener receives change notifications from a workspace. Errors and
	// panics raised by a listener are logged and never reach the caller.
	Listener interface {
		// Changed is called for every file reported with ChangedFile.
		Changed(path string) error
		// Begin and End bracket a batch of changes.
		Begin() error
		End() error
		// Signal is called by Workspace.Signal. A listener that signals the
		// workspace again must pass ctx along; such nested signals are dropped.
		Signal(ctx context.Context, ws *Workspace) error
	}

	// ListenerFuncs adapts optional functions to the Listener interface.
	// Nil functions are no-ops.
	ListenerFuncs struct {
		OnChanged func(path string) error
		OnBegin   func() error
		OnEnd     func() error
		OnSignal  func(ctx context.Context, ws *Workspace) error
	}

	signalKey struct{ ws *Workspace }
)

func (l *ListenerFuncs) Changed(path string) error {
	if l.OnChanged == nil {
		return nil
	}
	return l.OnChanged(path)
}

func (l *ListenerFuncs) Begin() error {
	if l.OnBegin == nil {
		return nil
	}
	return l.OnBegin()
}

func (l *ListenerFuncs) End() error {
	if l.OnEnd == nil {
		return nil
	}
	return l.OnEnd()
}

func (l *ListenerFuncs) Signal(ctx context.Context, ws *Workspace) error {
	if l.OnSignal == nil {
		return nil
	}
	return l.OnSignal(ctx, ws)
}

// AddListener registers l.
func (ws *Workspace) AddListener(l Listener) {
	ws.listenerMu.Lock()
	defer ws.listenerMu.Unlock()
	ws.listeners = append(ws.listeners, l)
}

// RemoveListener unregisters l. Removing an unknown listener is a no-op.
func (ws *Workspace) RemoveListener(l Listener) {
	ws.listenerMu.Lock()
	defer ws.listenerMu.Unlock()
	ws.listeners = slices.DeleteFunc(ws.listeners, func(x Listener) bool { return x == l })
}

func (ws *Workspace) snapshotListeners() []Listener {
	ws.listenerMu.RLock()
	defer ws.listenerMu.RUnlock()
	return slices.Clone(ws.listeners)
}

// ChangedFile tells every listener that path was created, changed or
// deleted. The workspace is no longer offline afterwards.
func (ws *Workspace) ChangedFile(path string) {
	ws.offline.Store(false)
	for _, l := range ws.snapshotListeners() {
		if err := safeCall(func() error { return l.Changed(path) }); err != nil {
			slog.Warn("listener failed on changed file", "path", path, "error", err)
		}
	}
}

// Bracket tells every listener that a batch of changes begins or ends.
func (ws *Workspace) Bracket(begin bool) {
	for _, l := range ws.snapshotListeners() {
		call := l.End
		if begin {
			call = l.Begin
		}
		if err := safeCall(call); err != nil {
			slog.Debug("listener failed on bracket", "begin", begin, "error", err)
		}
	}
}

// Signal notifies every listener. Calls made with a context that is already
// inside a Signal of this workspace return immediately.
func (ws *Workspace) Signal(ctx context.Context) {
	key := signalKey{ws}
	if ctx.Value(key) != nil {
		return
	}
	ctx = context.WithValue(ctx, key, true)
	for _, l := range ws.snapshotListeners() {
		if err := safeCall(func() error { return l.Signal(ctx, ws) }); err != nil {
			slog.Debug("listener failed on signal", "error", err)
		}
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn()
}
