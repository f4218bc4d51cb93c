// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package logging centralizes slothlet's structured logging: a
// log/slog.TextHandler whose level follows Config.Debug, with a
// component tag attached via WithComponent so log lines read like
// "discovery.walk.start" the way the teacher's "bootstrap.project.init.start"
// events do.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	root    *slog.Logger
	rootSet bool
)

func init() {
	level.Set(slog.LevelInfo)
	root = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Configure sets the package-wide output writer and debug level. Called
// once by slothlet.New from the resolved Config; safe to call again in
// tests.
func Configure(w io.Writer, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
	root = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	rootSet = true
}

// Default returns the package's current root logger.
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// WithComponent returns a logger tagged with component=name, the
// convention every slothlet package uses for its log lines (e.g.
// logging.WithComponent("discovery").Info("walk.start", "dir", dir)).
func WithComponent(name string) *slog.Logger {
	return Default().With("component", name)
}

// IsConfigured reports whether Configure has been called at least once,
// for tests that want to assert default-vs-custom wiring.
func IsConfigured() bool {
	mu.RLock()
	defer mu.RUnlock()
	return rootSet
}
