// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package reqcontext implements slothlet's per-request context (spec.md
// §4.9): a context.Context-carried value map, pushed fresh on every
// Run/Scope, merged with the base context either shallowly or deeply.
package reqcontext

import (
	"context"
	"maps"

	"github.com/slothlet/slothlet/slotherr"
)

// Merge selects how a request context combines with its parent.
type Merge string

const (
	MergeShallow Merge = "shallow"
	MergeDeep    Merge = "deep"
)

// Validate rejects any Merge value other than the two defined constants,
// per spec.md §4.9 ("Invalid merge value rejected at BoundApi configuration
// time").
func (m Merge) Validate() error {
	switch m {
	case MergeShallow, MergeDeep, "":
		return nil
	default:
		return slotherr.Configurationf("", "invalid merge strategy %q, must be \"shallow\" or \"deep\"", string(m))
	}
}

type ctxKey struct{}

// Store is the active per-request value map carried on a context.Context.
type Store map[string]any

// Current returns the Store active on ctx, and whether one is present.
func Current(ctx context.Context) (Store, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return nil, false
	}
	s, ok := v.(Store)
	return s, ok
}

// Effective returns the merged view base consumers should see: the base
// context merged underneath whatever Store is active on ctx, if any. This
// backs the Bound API's `context` getter (spec.md §4.7).
func Effective(ctx context.Context, base Store) Store {
	active, ok := Current(ctx)
	if !ok {
		return base
	}
	return active
}

// Push merges update onto whatever Store is already active on ctx, or onto
// base if none is active yet, using strategy, and returns a new context
// carrying the merged result. Nested Run/Scope calls therefore inherit from
// their parent and add on top, and the outermost call still inherits the
// Bound API's base context, per spec.md §4.9.
func Push(ctx context.Context, base, update Store, strategy Merge) (context.Context, error) {
	if err := strategy.Validate(); err != nil {
		return ctx, err
	}
	parent := Effective(ctx, base)
	merged := merge(parent, update, strategy)
	return context.WithValue(ctx, ctxKey{}, merged), nil
}

func merge(base, update Store, strategy Merge) Store {
	if base == nil {
		base = Store{}
	}
	if strategy == MergeDeep {
		return deepMerge(base, update)
	}
	out := make(Store, len(base)+len(update))
	maps.Copy(out, base)
	maps.Copy(out, update)
	return out
}

func deepMerge(base, update Store) Store {
	out := make(Store, len(base)+len(update))
	maps.Copy(out, base)
	for k, uv := range update {
		bv, exists := out[k]
		if !exists {
			out[k] = uv
			continue
		}
		bMap, bIsMap := bv.(map[string]any)
		uMap, uIsMap := uv.(map[string]any)
		if bIsMap && uIsMap {
			out[k] = deepMergeAny(bMap, uMap)
			continue
		}
		out[k] = uv
	}
	return out
}

func deepMergeAny(base, update map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(update))
	maps.Copy(out, base)
	for k, uv := range update {
		bv, exists := out[k]
		if !exists {
			out[k] = uv
			continue
		}
		bMap, bIsMap := bv.(map[string]any)
		uMap, uIsMap := uv.(map[string]any)
		if bIsMap && uIsMap {
			out[k] = deepMergeAny(bMap, uMap)
			continue
		}
		out[k] = uv
	}
	return out
}

// Run implements the Bound API's api.run(ctx, fn, ...args): pushes update
// onto the currently active context (falling back to base on the outermost
// call) using strategy, and invokes fn with the resulting context,
// forwarding args and returning fn's result.
func Run(ctx context.Context, base, update Store, strategy Merge, fn func(context.Context, []any) (any, error), args []any) (any, error) {
	next, err := Push(ctx, base, update, strategy)
	if err != nil {
		return nil, err
	}
	return fn(next, args)
}
