// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package slothlet

import (
	"context"
	"os"

	"github.com/slothlet/slothlet/internal/hooks"
	"github.com/slothlet/slothlet/internal/tree"
	"github.com/slothlet/slothlet/slotherr"
)

// testModeEnv gates the introspection methods spec.md §6 reserves for
// tests: GetAPIOwnership and GetCurrentOwner.
const testModeEnv = "SLOTHLET_INTERNAL_TEST_MODE"

func testModeEnabled() bool {
	return os.Getenv(testModeEnv) != ""
}

// Description is the introspection blob returned by Describe().
type Description struct {
	InstanceID string
	Dir        string
	Mode       string
	HotReload  bool
	Paths      []string
	TopLevel   []string
	HookCount  int
}

// Describe returns a snapshot of the instance's configuration and current
// shape (spec.md §4.7's `describe()`).
func (b *BoundApi) Describe(ctx context.Context) Description {
	top, _ := tree.Keys(ctx, b.getRoot())
	return Description{
		InstanceID: b.InstanceID(),
		Dir:        b.cfg.Dir,
		Mode:       b.cfg.Mode.String(),
		HotReload:  b.cfg.HotReload,
		Paths:      b.ownership.Paths(),
		TopLevel:   top,
		HookCount:  len(b.hookManager.List("")),
	}
}

// DebugContext is the __ctx test-introspection surface of spec.md §4.7.
type DebugContext struct {
	Self        *BoundApi
	Context     map[string]any
	HookManager *hooks.Manager
	InstanceID  string
}

// DebugCtx exposes __ctx, gated the same way as GetAPIOwnership/
// GetCurrentOwner: it is meant for this module's own tests and consumer
// test suites, not production code paths.
func (b *BoundApi) DebugCtx(ctx context.Context) (DebugContext, error) {
	if !testModeEnabled() {
		return DebugContext{}, slotherr.Configurationf("", "test-mode introspection is disabled; set %s to enable", testModeEnv)
	}
	return DebugContext{
		Self:        b,
		Context:     b.Context(ctx),
		HookManager: b.hookManager,
		InstanceID:  b.InstanceID(),
	}, nil
}

// GetAPIOwnership returns every moduleId that has ever claimed path and
// still has a live frame on its ownership stack, gated behind
// SLOTHLET_INTERNAL_TEST_MODE per spec.md §6.
func (b *BoundApi) GetAPIOwnership(path string) (map[string]struct{}, error) {
	if !testModeEnabled() {
		return nil, slotherr.Configurationf(path, "test-mode introspection is disabled; set %s to enable", testModeEnv)
	}
	stack, ok := b.ownership.Lookup(path)
	if !ok {
		return map[string]struct{}{}, nil
	}
	out := map[string]struct{}{}
	for _, f := range stack.Frames() {
		out[f.ModuleID] = struct{}{}
	}
	return out, nil
}

// GetCurrentOwner returns the moduleId currently on top of path's
// ownership stack, or "" if path has no tracked claims.
func (b *BoundApi) GetCurrentOwner(path string) (string, error) {
	if !testModeEnabled() {
		return "", slotherr.Configurationf(path, "test-mode introspection is disabled; set %s to enable", testModeEnv)
	}
	stack, ok := b.ownership.Lookup(path)
	if !ok {
		return "", nil
	}
	f, ok := stack.Current()
	if !ok {
		return "", nil
	}
	return f.ModuleID, nil
}
