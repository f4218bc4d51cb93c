// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package tree

import (
	"context"
	"path/filepath"

	"github.com/slothlet/slothlet/internal/discovery"
	"github.com/slothlet/slothlet/internal/segment"
)

// BuildLazy classifies dir one level deep and returns a Node for it: its own
// files are decoded immediately (it must exist and answer Keys() right
// away), but every subfolder becomes a LazyNamespace that, on first access,
// runs discovery and BuildEager for that whole subtree (spec.md §4.5).
func BuildLazy(ctx context.Context, path segment.Path, dir, segmentName string, opts discovery.Options) (Node, error) {
	c, subdirs, err := discovery.ClassifyShallow(dir, segmentName, opts)
	if err != nil {
		return nil, err
	}

	var root Node
	if c.Inlined != nil {
		root, err = buildFileNode(path, c.Inlined.AbsPath, opts.Decoders)
		if err != nil {
			return nil, err
		}
	} else {
		root = NewNamespace(path)
	}

	for _, f := range c.Files {
		childPath := path.Join(f.Name)
		child, err := buildFileNode(childPath, f.AbsPath, opts.Decoders)
		if err != nil {
			return nil, err
		}
		attach(root, f.Name, child)
	}

	for _, name := range subdirs {
		childSegment := segment.Sanitize(name, opts.Rules)
		childDir := filepath.Join(dir, name)
		childPath := path.Join(childSegment)
		placeholder := NewLazyNamespace(childPath, func(ctx context.Context) (Node, error) {
			sub, err := discovery.Walk(ctx, childDir, childSegment, discovery.Options{
				Rules:    opts.Rules,
				Decoders: opts.Decoders,
				MaxDepth: 0,
			})
			if err != nil {
				return nil, err
			}
			return BuildEager(ctx, childPath, sub, opts.Decoders)
		})
		attach(root, childSegment, placeholder)
	}

	return root, nil
}
