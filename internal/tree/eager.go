// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package tree

import (
	"context"

	"github.com/slothlet/slothlet/internal/discovery"
	"github.com/slothlet/slothlet/internal/loader"
	"github.com/slothlet/slothlet/internal/segment"
)

// BuildEager walks a discovery.Classification and its loader.Registry,
// decoding every file and applying §4.3's merge rules and §4.2's
// flattening decision, returning a fully-materialized Node tree with no
// deferred work left (spec.md §4.4).
func BuildEager(ctx context.Context, path segment.Path, c *discovery.Classification, decoders *loader.Registry) (Node, error) {
	var root Node
	var err error

	if c.Inlined != nil {
		root, err = buildFileNode(path, c.Inlined.AbsPath, decoders)
	} else {
		root = NewNamespace(path)
	}
	if err != nil {
		return nil, err
	}

	for _, f := range c.Files {
		childPath := path.Join(f.Name)
		child, err := buildFileNode(childPath, f.AbsPath, decoders)
		if err != nil {
			return nil, err
		}
		attach(root, f.Name, child)
	}

	for name, sub := range c.Folders {
		childPath := path.Join(name)
		child, err := BuildEager(ctx, childPath, sub, decoders)
		if err != nil {
			return nil, err
		}
		attach(root, name, child)
	}

	return root, nil
}

func buildFileNode(path segment.Path, absPath string, decoders *loader.Registry) (Node, error) {
	export, err := decoders.Decode(absPath)
	if err != nil {
		return nil, err
	}
	return FromExport(path, export)
}

// attach places child under key on root, regardless of which Node variant
// root turned out to be: a Namespace gets a new entry, while a Leaf/Value
// inlined from §4.2 Cases 1-3 gets an extra property so its siblings remain
// reachable on the same identity.
func attach(root Node, key string, child Node) {
	switch n := root.(type) {
	case *Namespace:
		n.Set(key, child)
	case *Leaf:
		n.SetProp(key, child)
	case *ValueNode:
		n.SetProp(key, child)
	}
}
