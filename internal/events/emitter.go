// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package events implements slothlet's EventEmitter-equivalent propagation
// (spec.md §4.9): a listener registered on an Emitter while a per-request
// context is active is wrapped so that context is restored when the
// listener fires, regardless of which goroutine calls Emit.
package events

import (
	"context"
	"sync"

	"github.com/slothlet/slothlet/internal/reqcontext"
)

// Listener receives the context active at registration time (if any, else
// whatever context Emit was called with) plus the emitted payload.
type Listener func(ctx context.Context, payload any)

type entry struct {
	id       uint64
	listener Listener
	ctx      context.Context
	tracked  bool
}

// Emitter is a minimal named-event pub/sub hub, the equivalent of Node's
// EventEmitter for the pieces slothlet needs: On/Off/Emit, plus an
// instrumentation mode that captures the ambient per-request context at
// registration time (Track) so later firings replay it.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	seq      uint64
	tracking bool
}

// NewEmitter returns an Emitter with tracking off: listeners added via On
// fire with whatever context Emit is called with, not a captured one.
func NewEmitter() *Emitter {
	return &Emitter{handlers: map[string][]entry{}}
}

// Track enables registration-time context capture for every On call made
// from here forward. Listeners already registered before Track was called
// are not retroactively wrapped and remain the consumer's own
// responsibility to clean up (spec.md §4.9: "Pre-existing listeners ...
// are not wrapped and remain the consumer's responsibility at shutdown").
func (e *Emitter) Track() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracking = true
}

// On registers listener for event, returning an id usable with Off. If
// tracking is active, the context passed to On (via ctx) is captured and
// replayed on every firing, overriding whatever context Emit supplies.
func (e *Emitter) On(ctx context.Context, event string, listener Listener) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	id := e.seq
	ent := entry{id: id, listener: listener}
	if e.tracking {
		ent.ctx = ctx
		ent.tracked = true
	}
	e.handlers[event] = append(e.handlers[event], ent)
	return id
}

// Off removes the listener registered under id for event, returning false
// if no such listener was found.
func (e *Emitter) Off(event string, id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.handlers[event]
	for i, ent := range list {
		if ent.id == id {
			e.handlers[event] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Emit fires every listener registered for event, in registration order.
// A listener registered while tracking was active receives its captured
// context instead of ctx.
func (e *Emitter) Emit(ctx context.Context, event string, payload any) {
	e.mu.RLock()
	list := append([]entry(nil), e.handlers[event]...)
	e.mu.RUnlock()

	for _, ent := range list {
		fireCtx := ctx
		if ent.tracked {
			fireCtx = ent.ctx
		}
		ent.listener(fireCtx, payload)
	}
}

// ListenerCount returns how many listeners are registered for event, for
// shutdown bookkeeping/introspection.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

// Shutdown removes every tracked listener across every event, leaving
// untracked (pre-existing) listeners in place per spec.md §4.9's
// cleanup-ownership rule.
func (e *Emitter) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for event, list := range e.handlers {
		kept := list[:0]
		for _, ent := range list {
			if !ent.tracked {
				kept = append(kept, ent)
			}
		}
		if len(kept) == 0 {
			delete(e.handlers, event)
		} else {
			e.handlers[event] = kept
		}
	}
}

// CurrentStore is a convenience wrapper for listeners that want the
// per-request reqcontext.Store carried by the context they were fired
// with, mirroring how a slothlet leaf reads its own ambient context.
func CurrentStore(ctx context.Context) (reqcontext.Store, bool) {
	return reqcontext.Current(ctx)
}
