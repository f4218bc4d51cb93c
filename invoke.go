// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package slothlet

import (
	"context"
	"errors"
	"time"

	"github.com/slothlet/slothlet/internal/invoke"
	"github.com/slothlet/slothlet/internal/metrics"
	"github.com/slothlet/slothlet/internal/reqcontext"
	"github.com/slothlet/slothlet/internal/segment"
	"github.com/slothlet/slothlet/internal/tree"
	"github.com/slothlet/slothlet/slotherr"
)

// Get navigates to apiPath, materializing any lazy subtree along the way.
func (b *BoundApi) Get(ctx context.Context, apiPath string) (tree.Node, error) {
	if apiPath == "" {
		return tree.Resolve(ctx, b.getRoot())
	}
	path, err := segment.ParsePath(apiPath)
	if err != nil {
		return nil, err
	}
	node := b.getRoot()
	for _, seg := range path {
		next, ok, gerr := tree.Get(ctx, node, seg)
		if gerr != nil {
			return nil, gerr
		}
		if !ok {
			return nil, slotherr.Accessf(apiPath, nil, "path %q not found", apiPath)
		}
		node = next
	}
	return tree.Resolve(ctx, node)
}

// Invoke calls the leaf at apiPath through the before/primary/after/
// always/error hook pipeline (spec.md §4.6), passing args to the target
// and the caller's effective per-request context to every hook.
func (b *BoundApi) Invoke(ctx context.Context, apiPath string, args ...any) ([]any, error) {
	node, err := b.Get(ctx, apiPath)
	if err != nil {
		return nil, err
	}
	target := func(callArgs []any) ([]any, error) {
		return tree.Invoke(ctx, node, callArgs)
	}

	reqCtx := reqcontext.Effective(ctx, b.baseContext)
	start := time.Now()
	out, err := invoke.Invoke(b.hookManager, apiPath, target, args, reqCtx, invoke.Options{})
	metrics.RecordInvocation(apiPath, time.Since(start), errKind(err))
	return out, err
}

func errKind(err error) string {
	if err == nil {
		return ""
	}
	var se *slotherr.Error
	if errors.As(err, &se) {
		return string(se.Kind)
	}
	return "unknown"
}

// Run pushes update onto ctx's active per-request context using the
// instance's default merge strategy and invokes fn with the result
// (spec.md §4.9's `run`).
func (b *BoundApi) Run(ctx context.Context, update map[string]any, fn func(context.Context) (any, error)) (any, error) {
	return reqcontext.Run(ctx, b.baseContext, reqcontext.Store(update), b.defaultMerge, func(next context.Context, _ []any) (any, error) {
		return fn(next)
	}, nil)
}

// ScopeParams configures a Scope call.
type ScopeParams struct {
	Context map[string]any
	// Merge overrides the instance's default merge strategy when non-empty.
	Merge reqcontext.Merge
	Fn    func(context.Context, []any) (any, error)
	Args  []any
}

// Scope is the full form of Run: an explicit args slice and an optional
// per-call merge override (spec.md §4.9's `scope`).
func (b *BoundApi) Scope(ctx context.Context, p ScopeParams) (any, error) {
	strategy := p.Merge
	if strategy == "" {
		strategy = b.defaultMerge
	}
	return reqcontext.Run(ctx, b.baseContext, reqcontext.Store(p.Context), strategy, p.Fn, p.Args)
}
