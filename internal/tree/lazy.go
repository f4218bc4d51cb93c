// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package tree

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/slothlet/slothlet/internal/segment"
	"github.com/slothlet/slothlet/slotherr"
)

// Materializer builds the real Node a LazyNamespace stands in for. It runs
// at most once per LazyNamespace, no matter how many goroutines race to
// trigger it first (spec.md §4.5).
type Materializer func(ctx context.Context) (Node, error)

// LazyNamespace is a self-replacing placeholder: on first access it runs
// its Materializer, atomically stores the result, and every subsequent
// access (including concurrent ones already in flight) is served the same
// materialized Node. It satisfies Node itself so it can sit anywhere a
// Namespace would in an eager tree.
type LazyNamespace struct {
	path         segment.Path
	materializer Materializer

	real    atomic.Pointer[Node]
	once    sync.Once
	onceErr error
	group   *singleflight.Group
}

// NewLazyNamespace builds a placeholder mounted at path that defers to fn
// on first use.
func NewLazyNamespace(path segment.Path, fn Materializer) *LazyNamespace {
	return &LazyNamespace{path: path, materializer: fn, group: &singleflight.Group{}}
}

func (l *LazyNamespace) Kind() Kind {
	if real := l.real.Load(); real != nil {
		return (*real).Kind()
	}
	return KindNamespace
}

func (l *LazyNamespace) Path() segment.Path { return l.path }

// Call materializes the placeholder and, if it turned out to be a Leaf,
// invokes it — satisfying Invokable so a consumer holding the placeholder
// can call it without checking whether materialization already happened.
func (l *LazyNamespace) Call(args []any) ([]any, error) {
	real, err := l.Materialize(context.Background())
	if err != nil {
		return nil, err
	}
	leaf, ok := real.(*Leaf)
	if !ok {
		return nil, slotherr.Targetf(l.path.String(), nil, "node is not callable")
	}
	return leaf.Call(args)
}

// Materialize returns the real Node, running the Materializer at most once.
// Concurrent callers collapse into a single in-flight call via singleflight.
func (l *LazyNamespace) Materialize(ctx context.Context) (Node, error) {
	if real := l.real.Load(); real != nil {
		return *real, nil
	}

	v, err, _ := l.group.Do(l.path.String(), func() (any, error) {
		var result Node
		l.once.Do(func() {
			result, l.onceErr = l.materializer(ctx)
			if l.onceErr == nil {
				l.real.Store(&result)
			}
		})
		if l.onceErr != nil {
			return nil, l.onceErr
		}
		return *l.real.Load(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Node), nil
}

// Resolve dereferences a LazyNamespace if n is one, materializing it;
// otherwise it returns n unchanged. Every tree consumer that needs to
// inspect or call a Node should go through Resolve first.
func Resolve(ctx context.Context, n Node) (Node, error) {
	lz, ok := n.(*LazyNamespace)
	if !ok {
		return n, nil
	}
	return lz.Materialize(ctx)
}

// Get looks up key on n, materializing n first if it is lazy.
func Get(ctx context.Context, n Node, key string) (Node, bool, error) {
	n, err := Resolve(ctx, n)
	if err != nil {
		return nil, false, err
	}
	switch t := n.(type) {
	case *Namespace:
		c, ok := t.Get(key)
		return c, ok, nil
	case *Leaf:
		c, ok := t.Get(key)
		return c, ok, nil
	case *ValueNode:
		c, ok := t.Get(key)
		return c, ok, nil
	default:
		return nil, false, nil
	}
}

// Keys lists n's children, materializing n first if it is lazy.
func Keys(ctx context.Context, n Node) ([]string, error) {
	n, err := Resolve(ctx, n)
	if err != nil {
		return nil, err
	}
	switch t := n.(type) {
	case *Namespace:
		return t.Keys(), nil
	case *Leaf:
		return t.Keys(), nil
	case *ValueNode:
		return t.Keys(), nil
	default:
		return nil, nil
	}
}

// Invoke calls n as a Leaf, materializing n first if it is lazy.
func Invoke(ctx context.Context, n Node, args []any) ([]any, error) {
	n, err := Resolve(ctx, n)
	if err != nil {
		return nil, err
	}
	leaf, ok := n.(*Leaf)
	if !ok {
		return nil, slotherr.Targetf(n.Path().String(), nil, "node is not callable")
	}
	return leaf.Call(args)
}
