// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package ownership tracks which module last claimed each ApiPath so
// addApi/removeApi/reloadApi can enforce slothlet's cross-module mutation
// rules (spec.md §4.8): a stack of claims per path, with overwrite gating,
// merge-by-property-set, and rollback-on-remove.
package ownership

import (
	"sort"
	"sync"

	"github.com/slothlet/slothlet/slotherr"
)

// CoreModuleID is the sentinel owner recorded for whatever addApi/discovery
// installed at bootstrap, before any consumer-supplied module claims a
// path.
const CoreModuleID = "core"

// Frame is one claim on a path: which module bound it, the binding itself
// (opaque to this package — a *tree.Leaf, *tree.Namespace, or *tree.ValueNode
// in practice), the property keys it contributed (for merge-by-property-set),
// and any metadata attached via addApi's metadata argument.
type Frame struct {
	ModuleID string
	Binding  any
	Props    []string
	Metadata map[string]any
}

// Options configures a Claim call.
type Options struct {
	AllowAPIOverwrite bool
	ForceOverwrite    bool
	HotReload         bool
}

// Stack is the ownership history for a single ApiPath: a LIFO of Frames,
// the top being the current owner. Paths with overlapping but distinct
// property sets are tracked as separate Frames that coexist (merge
// semantics) rather than one replacing the other.
type Stack struct {
	mu     sync.Mutex
	frames []Frame
}

// NewStack returns an empty ownership stack.
func NewStack() *Stack { return &Stack{} }

// Current returns the top-of-stack Frame, if any.
func (s *Stack) Current() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Claim attempts to push frame onto the stack at path, applying Rule 12
// (cross-module overwrite gating), the forceOverwrite/hotReload
// requirement, and property-set merging: if frame and the current top frame
// both carry non-empty Props and the two sets are disjoint, both frames
// coexist rather than one shadowing the other. Frames below the top are
// not compared.
func (s *Stack) Claim(path string, frame Frame, opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame.ModuleID == "" {
		frame.ModuleID = CoreModuleID
	}

	if opts.ForceOverwrite && !opts.HotReload {
		return slotherr.Configurationf(path, "forceOverwrite requires hotReload")
	}

	if len(s.frames) == 0 {
		s.frames = append(s.frames, frame)
		return nil
	}

	top := s.frames[len(s.frames)-1]

	if top.ModuleID == frame.ModuleID {
		s.frames[len(s.frames)-1] = frame
		return nil
	}

	if disjointProps(top.Props, frame.Props) && len(top.Props) > 0 && len(frame.Props) > 0 {
		s.frames = append(s.frames, frame)
		return nil
	}

	if opts.ForceOverwrite {
		s.frames = append(s.frames, frame)
		return nil
	}
	if !opts.AllowAPIOverwrite {
		return slotherr.OwnershipDenied(path, top.ModuleID)
	}
	s.frames = append(s.frames, frame)
	return nil
}

// RemovePropsDiff implements Rule 13: it returns the property keys present
// in a module's previous binding (old) but absent from its new one (new),
// for the Bound API layer to detach from the live tree before installing
// the new binding, so orphan functions don't linger across a same-module
// re-add.
func RemovePropsDiff(old, updated []string) []string {
	keep := make(map[string]bool, len(updated))
	for _, p := range updated {
		keep[p] = true
	}
	var removed []string
	for _, p := range old {
		if !keep[p] {
			removed = append(removed, p)
		}
	}
	sort.Strings(removed)
	return removed
}

func disjointProps(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, p := range a {
		set[p] = true
	}
	for _, p := range b {
		if set[p] {
			return false
		}
	}
	return true
}

// Release pops the frame belonging to moduleID. If it is the current
// (top) owner, the stack rolls back to the previous frame (its binding
// becomes visible again); if it is a non-current owner, its frame is
// simply dropped. Returns true if a frame was removed, and the previous
// frame now exposed (if the stack is non-empty after removal).
func (s *Stack) Release(moduleID string) (removed bool, exposed Frame, hasExposed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].ModuleID != moduleID {
			continue
		}
		s.frames = append(s.frames[:i], s.frames[i+1:]...)
		removed = true
		break
	}
	if !removed {
		return false, Frame{}, false
	}
	if len(s.frames) == 0 {
		return true, Frame{}, false
	}
	return true, s.frames[len(s.frames)-1], true
}

// Empty reports whether the stack has no remaining claims — the caller
// should then delete the path from the visible tree.
func (s *Stack) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) == 0
}

// Frames returns a snapshot of every claim on this path, bottom of stack
// first, for introspection (describe()).
func (s *Stack) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Registry is the process-wide (per bound-API-instance) map of ApiPath to
// ownership Stack, plus the per-path serialization locks addApi/removeApi/
// reloadApi require (spec.md §5: "serialize against themselves per-path").
type Registry struct {
	mu     sync.RWMutex
	stacks map[string]*Stack
	locks  map[string]*sync.Mutex
}

// NewRegistry returns an empty ownership Registry.
func NewRegistry() *Registry {
	return &Registry{stacks: map[string]*Stack{}, locks: map[string]*sync.Mutex{}}
}

// StackFor returns (creating if necessary) the ownership Stack for path.
func (r *Registry) StackFor(path string) *Stack {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stacks[path]
	if !ok {
		s = NewStack()
		r.stacks[path] = s
	}
	return s
}

// Lookup returns the Stack registered for path without creating one,
// unlike StackFor — used by removeApi/describe so a miss doesn't leave
// behind empty bookkeeping.
func (r *Registry) Lookup(path string) (*Stack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stacks[path]
	return s, ok
}

// Lock returns the per-path mutex used to serialize addApi/removeApi/
// reloadApi calls targeting the same path against each other.
func (r *Registry) Lock(path string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[path]
	if !ok {
		l = &sync.Mutex{}
		r.locks[path] = l
	}
	return l
}

// Delete removes the bookkeeping for path entirely (after its Stack goes
// Empty and the path is removed from the visible tree).
func (r *Registry) Delete(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stacks, path)
	delete(r.locks, path)
}

// Paths returns every ApiPath currently tracked, for describe().
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.stacks))
	for p := range r.stacks {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
