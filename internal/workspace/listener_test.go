// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func (r *recorder) listener(prefix string) *ListenerFuncs {
	return &ListenerFuncs{
		OnChanged: func(path string) error { r.add(prefix + " changed " + path); return nil },
		OnBegin:   func() error { r.add(prefix + " begin"); return nil },
		OnEnd:     func() error { r.add(prefix + " end"); return nil },
		OnSignal: func(context.Context, *Workspace) error {
			r.add(prefix + " signal")
			return nil
		},
	}
}

func TestListeners_Dispatch(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{"cnf/build.bnd": ""})
	rec := &recorder{}
	ws.AddListener(&ListenerFuncs{
		OnChanged: func(string) error { panic("boom") },
		OnBegin:   func() error { return errors.New("begin failed") },
	})
	ws.AddListener(rec.listener("a"))

	ws.Bracket(true)
	ws.ChangedFile("x.bnd")
	ws.Bracket(false)
	ws.Signal(context.Background())

	want := []string{"a begin", "a changed x.bnd", "a end", "a signal"}
	if got := rec.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if ws.IsOffline() {
		t.Error("ChangedFile should put the workspace online")
	}
}

func TestListeners_Remove(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{"cnf/build.bnd": ""})
	rec := &recorder{}
	l := rec.listener("a")
	ws.AddListener(l)
	ws.RemoveListener(l)
	ws.RemoveListener(l)
	ws.ChangedFile("x")
	if got := rec.list(); len(got) != 0 {
		t.Errorf("removed listener was called: %v", got)
	}
}

func TestSignal_Reentry(t *testing.T) {
	t.Parallel()

	ws := openWorkspace(t, map[string]string{"cnf/build.bnd": ""})
	other := openWorkspace(t, map[string]string{"cnf/build.bnd": ""})

	var calls, otherCalls int
	ws.AddListener(&ListenerFuncs{OnSignal: func(ctx context.Context, w *Workspace) error {
		calls++
		w.Signal(ctx)
		other.Signal(ctx)
		return nil
	}})
	other.AddListener(&ListenerFuncs{OnSignal: func(ctx context.Context, w *Workspace) error {
		otherCalls++
		w.Signal(ctx)
		return nil
	}})

	ws.Signal(context.Background())
	if calls != 1 {
		t.Errorf("nested signal should be dropped, listener called %d times", calls)
	}
	if otherCalls != 1 {
		t.Errorf("signals of another workspace are independent, called %d times", otherCalls)
	}

	ws.Signal(context.Background())
	if calls != 2 {
		t.Errorf("a later signal should dispatch again, called %d times", calls)
	}
}
