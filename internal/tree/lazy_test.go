// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package tree

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/slothlet/slothlet/internal/discovery"
	"github.com/slothlet/slothlet/internal/loader"
	"github.com/slothlet/slothlet/internal/registry"
	"github.com/slothlet/slothlet/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyNamespace_MaterializesOnce(t *testing.T) {
	var calls int32
	path := segment.Path{"feature"}
	lz := NewLazyNamespace(path, func(ctx context.Context) (Node, error) {
		atomic.AddInt32(&calls, 1)
		return NewNamespace(path), nil
	})

	for i := 0; i < 5; i++ {
		_, err := lz.Materialize(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls)
}

func TestLazyNamespace_ConcurrentMaterializeCollapses(t *testing.T) {
	var calls int32
	path := segment.Path{"feature"}
	lz := NewLazyNamespace(path, func(ctx context.Context) (Node, error) {
		atomic.AddInt32(&calls, 1)
		return NewNamespace(path), nil
	})

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			_, _ = lz.Materialize(context.Background())
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	assert.Equal(t, int32(1), calls)
}

func TestBuildLazy_SubfolderDeferred(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "widgets")
	require.NoError(t, os.Mkdir(sub, 0o755))
	modPath := filepath.Join(sub, "list.go")
	require.NoError(t, os.WriteFile(modPath, []byte("package widgets\n"), 0o644))
	registry.Register(modPath, registry.Export{
		Default:    func() []string { return []string{"a", "b"} },
		HasDefault: true,
		Callable:   true,
	})

	decoders := loader.NewRegistry()
	n, err := BuildLazy(context.Background(), segment.Path{}, root, "", discovery.Options{Decoders: decoders})
	require.NoError(t, err)

	ns := n.(*Namespace)
	child, ok := ns.Get("widgets")
	require.True(t, ok)

	lz, ok := child.(*LazyNamespace)
	require.True(t, ok, "subfolder must start as a LazyNamespace")
	assert.Equal(t, KindNamespace, lz.Kind())

	materialized, err := Resolve(context.Background(), lz)
	require.NoError(t, err)
	listNode, ok, err := Get(context.Background(), materialized, "list")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindLeaf, listNode.Kind())
}
