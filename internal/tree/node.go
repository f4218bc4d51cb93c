// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package tree implements slothlet's L3 layer: turning discovery+loader
// output into the runtime tree of Namespace/Leaf/Value nodes that the bound
// API façade walks and invokes (spec.md §4.3-§4.5).
package tree

import (
	"reflect"
	"sort"
	"sync"

	"github.com/slothlet/slothlet/internal/loader"
	"github.com/slothlet/slothlet/internal/segment"
	"github.com/slothlet/slothlet/slotherr"
)

// Kind distinguishes the three Node shapes spec.md §4.3 can produce.
type Kind int

const (
	KindNamespace Kind = iota
	KindLeaf
	KindValue
)

// Node is the common surface every tree member implements: its own mount
// Path (the "__slothletPath" identity tag of spec.md §4.4) and Kind. A
// LazyNamespace also satisfies Node, materializing on first Get/Invoke.
type Node interface {
	Kind() Kind
	Path() segment.Path
}

// Namespace is a plain object-of-properties node (Case 4's folder.<name>
// grouping, and the no-default/named-exports-only case of §4.3).
type Namespace struct {
	path     segment.Path
	mu       sync.RWMutex
	children map[string]Node
}

// NewNamespace builds an empty Namespace mounted at path.
func NewNamespace(path segment.Path) *Namespace {
	return &Namespace{path: path, children: map[string]Node{}}
}

func (n *Namespace) Kind() Kind          { return KindNamespace }
func (n *Namespace) Path() segment.Path  { return n.path }

// Get returns the child named key, if any.
func (n *Namespace) Get(key string) (Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.children[key]
	return c, ok
}

// Set attaches or replaces a child, preserving the parent's own identity.
func (n *Namespace) Set(key string, child Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children[key] = child
}

// Delete removes a child, reporting whether it was present.
func (n *Namespace) Delete(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.children[key]
	delete(n.children, key)
	return ok
}

// Keys returns the child names in sorted order.
func (n *Namespace) Keys() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.children))
	for k := range n.children {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Invokable is satisfied by every Node that can be called, so a consumer
// holding a bare Node (lazy or materialized) can type-assert for
// callability without first checking which concrete variant it got.
type Invokable interface {
	Call(args []any) ([]any, error)
}

// Leaf is a callable node: spec.md §4.3's "default is a function, with
// named exports attached as own properties" case.
type Leaf struct {
	path  segment.Path
	mu    sync.RWMutex
	fn    reflect.Value
	props map[string]Node
}

// NewLeaf wraps a callable default value, attaching named exports as
// sibling properties reachable via Get.
func NewLeaf(path segment.Path, fn any, props map[string]Node) (*Leaf, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, slotherr.Materializationf(path.String(), nil, "default export is not callable")
	}
	if props == nil {
		props = map[string]Node{}
	}
	return &Leaf{path: path, fn: v, props: props}, nil
}

func (l *Leaf) Kind() Kind         { return KindLeaf }
func (l *Leaf) Path() segment.Path { return l.path }

// Rebind swaps the callable target in place, keeping the *Leaf pointer
// identity stable so a consumer holding it (directly, or via Bind's
// closure) transparently calls the new body after reloadApi/reload.
func (l *Leaf) Rebind(fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return slotherr.Materializationf(l.path.String(), nil, "default export is not callable")
	}
	l.mu.Lock()
	l.fn = v
	l.mu.Unlock()
	return nil
}

// Bind returns a closure over this Leaf's current identity: calling it
// always dispatches to whatever target Rebind most recently installed.
func (l *Leaf) Bind() func(args []any) ([]any, error) {
	return l.Call
}

// Func returns the callable currently bound to this Leaf, for a consumer
// (reloadApi's reconciliation pass) that needs to transplant it onto a
// different Leaf via Rebind.
func (l *Leaf) Func() any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fn.Interface()
}

// Get returns a named export attached to this Leaf.
func (l *Leaf) Get(key string) (Node, bool) {
	c, ok := l.props[key]
	return c, ok
}

// SetProp attaches an additional property, used when a folder inlines this
// Leaf (spec.md §4.2 Cases 1-3) and its sibling files/subfolders must still
// be reachable on the same node.
func (l *Leaf) SetProp(key string, child Node) { l.props[key] = child }

// Keys returns the attached named export names, sorted.
func (l *Leaf) Keys() []string {
	out := make([]string, 0, len(l.props))
	for k := range l.props {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Call invokes the underlying function via reflection, converting args with
// reflect.ValueOf. A mismatched argument count or type produces a Target
// error rather than panicking, since the call target's shape is only known
// at runtime. When the function's last result is of type error, that
// result is not part of out: a non-nil value is returned as a Target error
// wrapping it.
func (l *Leaf) Call(args []any) (out []any, err error) {
	l.mu.RLock()
	fn := l.fn
	l.mu.RUnlock()

	fnType := fn.Type()
	variadic := fnType.IsVariadic()
	want := fnType.NumIn()
	if (!variadic && len(args) != want) || (variadic && len(args) < want-1) {
		return nil, slotherr.Targetf(l.path.String(), nil,
			"call target expects %d argument(s), got %d", want, len(args))
	}

	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*slotherr.Error); ok {
				err = te
				return
			}
			err = slotherr.Targetf(l.path.String(), nil, "call target panicked: %v", r)
		}
	}()

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var paramType reflect.Type
		if variadic && i >= want-1 {
			paramType = fnType.In(want - 1).Elem()
		} else {
			paramType = fnType.In(i)
		}
		in[i] = coerceArg(a, paramType, l.path, i)
	}

	results := fn.Call(in)
	if n := len(results); n > 0 && fnType.Out(n-1) == reflect.TypeOf((*error)(nil)).Elem() {
		if callErr, _ := results[n-1].Interface().(error); callErr != nil {
			return nil, slotherr.Targetf(l.path.String(), callErr, "call target returned an error")
		}
		results = results[:n-1]
	}
	out = make([]any, len(results))
	for i, r := range results {
		out[i] = r.Interface()
	}
	return out, nil
}

func coerceArg(a any, want reflect.Type, path segment.Path, index int) reflect.Value {
	if a == nil {
		return reflect.Zero(want)
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(want) {
		return v
	}
	if v.Type().ConvertibleTo(want) {
		return v.Convert(want)
	}
	panic(slotherr.Targetf(path.String(), nil,
		"argument %d has type %s, want %s", index, v.Type(), want))
}

// ValueNode is a non-callable default, optionally with named exports merged
// onto a shallow copy (spec.md §4.3's last two merge rules).
type ValueNode struct {
	path  segment.Path
	value any
	props map[string]Node
}

// NewValue wraps a non-callable default (and any merged named exports).
func NewValue(path segment.Path, value any, props map[string]Node) *ValueNode {
	if props == nil {
		props = map[string]Node{}
	}
	return &ValueNode{path: path, value: value, props: props}
}

func (v *ValueNode) Kind() Kind         { return KindValue }
func (v *ValueNode) Path() segment.Path { return v.path }

// Value returns the wrapped default.
func (v *ValueNode) Value() any { return v.value }

// Get returns a property merged onto this value.
func (v *ValueNode) Get(key string) (Node, bool) {
	c, ok := v.props[key]
	return c, ok
}

// SetProp attaches an additional property, used when a folder inlines this
// ValueNode and its sibling files/subfolders must still be reachable on the
// same node.
func (v *ValueNode) SetProp(key string, child Node) { v.props[key] = child }

// Keys returns the merged property names, sorted.
func (v *ValueNode) Keys() []string {
	out := make([]string, 0, len(v.props))
	for k := range v.props {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FromExport applies spec.md §4.3's merge rules to one loader.Export,
// producing the matching Node variant.
func FromExport(path segment.Path, export loader.Export) (Node, error) {
	named := make(map[string]Node, len(export.Named))
	for k, v := range export.Named {
		childPath := path.Join(k)
		child, err := wrapNamed(childPath, v)
		if err != nil {
			return nil, err
		}
		named[k] = child
	}

	switch {
	case export.Callable && len(named) > 0:
		return NewLeaf(path, export.Default, named)
	case export.Callable:
		return NewLeaf(path, export.Default, nil)
	case export.HasDefault && len(named) == 0:
		return NewValue(path, export.Default, nil), nil
	case export.HasDefault:
		return NewValue(path, export.Default, named), nil
	case len(named) > 0:
		ns := NewNamespace(path)
		for k, v := range named {
			ns.Set(k, v)
		}
		return ns, nil
	default:
		return nil, slotherr.Materializationf(path.String(), nil, "module has neither a default nor named exports")
	}
}

func wrapNamed(path segment.Path, v any) (Node, error) {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.Func {
		return NewLeaf(path, v, nil)
	}
	return NewValue(path, v, nil), nil
}

