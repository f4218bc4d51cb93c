// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package tree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/slothlet/slothlet/internal/discovery"
	"github.com/slothlet/slothlet/internal/loader"
	"github.com/slothlet/slothlet/internal/registry"
	"github.com/slothlet/slothlet/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigModule(t *testing.T, dir, fileName string) {
	t.Helper()
	path := filepath.Join(dir, fileName)
	require.NoError(t, os.WriteFile(path, []byte("package config\n"), 0o644))
	registry.Register(path, registry.Export{
		Named: map[string]any{
			"GetConfig": func() string { return "cfg" },
		},
	})
}

func TestBuildEager_SmartFlatteningSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigModule(t, dir, "config.go")

	decoders := loader.NewRegistry()
	c, err := discovery.Walk(context.Background(), dir, "config", discovery.Options{Decoders: decoders})
	require.NoError(t, err)

	n, err := BuildEager(context.Background(), segment.Path{"config"}, c, decoders)
	require.NoError(t, err)
	assert.Equal(t, KindNamespace, n.Kind())

	ns := n.(*Namespace)
	_, hasConfig := ns.Get("config")
	assert.False(t, hasConfig, "inlined file must not appear as its own child")
	_, hasGetConfig := ns.Get("GetConfig")
	assert.True(t, hasGetConfig)
}

func TestBuildEager_SiblingFilesBecomeChildren(t *testing.T) {
	dir := t.TempDir()
	writeConfigModule(t, dir, "config.go")
	extraPath := filepath.Join(dir, "extra.go")
	require.NoError(t, os.WriteFile(extraPath, []byte("package config\n"), 0o644))
	registry.Register(extraPath, registry.Export{
		Default:    func() string { return "extra" },
		HasDefault: true,
		Callable:   true,
	})

	decoders := loader.NewRegistry()
	c, err := discovery.Walk(context.Background(), dir, "config", discovery.Options{Decoders: decoders})
	require.NoError(t, err)

	n, err := BuildEager(context.Background(), segment.Path{"config"}, c, decoders)
	require.NoError(t, err)

	ns := n.(*Namespace)
	extra, ok := ns.Get("extra")
	require.True(t, ok)
	assert.Equal(t, KindLeaf, extra.Kind())
}
