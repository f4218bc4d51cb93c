// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothlet/slothlet"
	"github.com/slothlet/slothlet/internal/registry"
)

func TestSetupTestBoundApi_StartsEmpty(t *testing.T) {
	b := SetupTestBoundApi(t)
	require.NotNil(t, b)

	d := b.Describe(context.Background())
	assert.Empty(t, d.TopLevel)
}

func TestSetupTestBoundApi_AppliesOverrides(t *testing.T) {
	b := SetupTestBoundApi(t, func(cfg *slothlet.Config) {
		cfg.HotReload = true
	})

	d := b.Describe(context.Background())
	assert.True(t, d.HotReload)
}

func TestWriteModule_IsDiscoverable(t *testing.T) {
	b := SetupTestBoundApi(t, func(cfg *slothlet.Config) {
		WriteModule(t, cfg.Dir, "math.go", registry.Export{
			Named: map[string]any{
				"Add": func(a, b int) int { return a + b },
			},
		})
	})

	out, err := b.Invoke(context.Background(), "math.Add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{5}, out)
}

func TestSetupTestBoundApi_IsolatesInstances(t *testing.T) {
	first := SetupTestBoundApi(t, func(cfg *slothlet.Config) {
		WriteModule(t, cfg.Dir, "math.go", registry.Export{
			Named: map[string]any{"Add": func(a, b int) int { return a + b }},
		})
	})
	second := SetupTestBoundApi(t)

	_, err := first.Invoke(context.Background(), "math.Add", 1, 1)
	require.NoError(t, err)

	_, err = second.Invoke(context.Background(), "math.Add", 1, 1)
	assert.Error(t, err, "second instance should not see the first instance's module")
}
