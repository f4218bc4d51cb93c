// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package instance tracks every live slothlet BoundApi process-wide: a
// registry keyed by instanceId, idempotent shutdown, and a per-instance
// lock serializing reload() against concurrent addApi/removeApi/reloadApi
// calls.
package instance

import (
	"sync"

	"github.com/google/uuid"
)

// Data is the bookkeeping a BoundApi registers about itself. Shutdown and
// OnShutdown are supplied by the owning BoundApi; this package only
// sequences when they run.
type Data struct {
	ID         string
	OnShutdown func()

	shutdownMu sync.Mutex
	reloadMu   sync.Mutex
	down       bool
}

// NewID generates a fresh instance id (spec.md §4.7's `instanceId`).
func NewID() string { return uuid.New().String() }

var (
	registryMu sync.RWMutex
	registry   = map[string]*Data{}
)

// Register adds d to the process-wide registry under d.ID.
func Register(d *Data) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.ID] = d
}

// Unregister removes an instance from the registry (called at the end of
// Shutdown).
func Unregister(id string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, id)
}

// Lookup returns the Data registered under id, if any.
func Lookup(id string) (*Data, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[id]
	return d, ok
}

// Count returns how many instances are currently registered.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Shutdown runs d.OnShutdown exactly once, even under concurrent callers,
// then unregisters d. A second call is a no-op.
func (d *Data) Shutdown() {
	d.shutdownMu.Lock()
	defer d.shutdownMu.Unlock()
	if d.down {
		return
	}
	d.down = true
	if d.OnShutdown != nil {
		d.OnShutdown()
	}
	Unregister(d.ID)
}

// ShuttingDown reports whether Shutdown has already run.
func (d *Data) ShuttingDown() bool {
	d.shutdownMu.Lock()
	defer d.shutdownMu.Unlock()
	return d.down
}

// WithReloadLock serializes fn against any other reload()/addApi/
// removeApi/reloadApi call on the same instance that also goes through
// WithReloadLock, per spec.md §5's "serialize against themselves" rule for
// whole-instance reload().
func (d *Data) WithReloadLock(fn func() error) error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()
	return fn()
}
