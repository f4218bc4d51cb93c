// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package registry is the compile-time substitute for "importing a file and
// reading its exports" (SPEC_FULL.md §0.1). Go cannot evaluate a .go file
// discovered at runtime, so a registry module publishes its exports by
// calling Register from its own init(), keyed by the absolute path of the
// file it lives in. internal/discovery walks the filesystem and asks this
// registry (via internal/loader's Go decoder) what a given path published.
package registry

import (
	"fmt"
	"sync"
)

// Export is the value-level payload a registry module publishes: a
// default export, a set of named exports, and whether the default is
// callable. It mirrors internal/loader.Export exactly; kept as a distinct
// type so this package has no dependency on internal/loader (loader
// depends on registry, not the other way around).
type Export struct {
	Default    any
	Named      map[string]any
	HasDefault bool
	Callable   bool
}

var (
	mu    sync.RWMutex
	byKey = map[string]Export{}
)

// Register publishes an Export for absPath. Calling Register twice for the
// same absPath (e.g. because a test re-imports a package) overwrites the
// prior entry rather than panicking: registries are compile-time-static,
// so duplicate registration only ever happens for the same literal code.
func Register(absPath string, export Export) {
	mu.Lock()
	defer mu.Unlock()
	byKey[absPath] = export
}

// Lookup returns the Export published for absPath, or ok=false if no
// registry module ever called Register for that path — loader's Go
// decoder turns that into an ErrNotRegistered error rather than silently
// skipping the file, since a .go file under a loaded directory that never
// registered itself is a configuration mistake (forgot to import the
// package for its init() to run) rather than a legitimately-absent file.
func Lookup(absPath string) (Export, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := byKey[absPath]
	return e, ok
}

// Keys returns every path currently registered, for diagnostics and tests.
func Keys() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(byKey))
	for k := range byKey {
		out = append(out, k)
	}
	return out
}

// ErrNotRegistered is returned by loader's Go decoder when a .go file has
// no matching registration.
func ErrNotRegistered(absPath string) error {
	return fmt.Errorf("registry: no module registered itself for %q (forgot to import the package for its init() to run?)", absPath)
}
