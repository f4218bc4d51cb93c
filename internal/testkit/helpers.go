// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package testing provides shared fixtures for tests that need a live
// bound API instance.
package testing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/slothlet/slothlet"
	"github.com/slothlet/slothlet/internal/registry"
)

// SetupTestBoundApi creates a bound API instance rooted at a fresh temp
// directory, applying any overrides to the default Config before New runs.
// Shutdown is registered as test cleanup.
//
// Example:
//
//	b := testing.SetupTestBoundApi(t, func(cfg *slothlet.Config) {
//	    cfg.HotReload = true
//	})
func SetupTestBoundApi(t *testing.T, overrides ...func(*slothlet.Config)) *slothlet.BoundApi {
	t.Helper()

	dir := t.TempDir()
	cfg := slothlet.Config{Dir: dir}
	for _, o := range overrides {
		o(&cfg)
	}

	b, err := slothlet.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create bound API: %v", err)
	}
	t.Cleanup(b.Shutdown)

	return b
}

// WriteModule writes a placeholder source file under dir and registers its
// export in the compile-time registry, simulating what an init()-time
// Register call would do for a real module file at that path.
//
// Example:
//
//	dir := t.TempDir()
//	testing.WriteModule(t, dir, "math.go", registry.Export{
//	    Named: map[string]any{"Add": func(a, b int) int { return a + b }},
//	})
func WriteModule(t *testing.T, dir, fileName string, export registry.Export) string {
	t.Helper()

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte("package m\n"), 0o644); err != nil {
		t.Fatalf("failed to write test module %s: %v", path, err)
	}
	registry.Register(path, export)
	return path
}
