// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/slothlet/slothlet/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGoFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "add.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIntrospector_ExportedNames(t *testing.T) {
	path := writeGoFile(t, `package mathmod

const Pi = 3.14

var Enabled = true

type Config struct{}

func Add(a, b int) int { return a + b }

func helper() int { return 0 }
`)

	in := NewIntrospector()
	names, err := in.ExportedNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Add", "Config", "Enabled", "Pi"}, names)
}

func TestCrossCheck_MissingRegistration(t *testing.T) {
	path := writeGoFile(t, `package mathmod

func Add(a, b int) int { return a + b }
`)

	in := NewIntrospector()
	err := CrossCheck(in, path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nothing registered itself")
}

func TestCrossCheck_MissingNamedExport(t *testing.T) {
	path := writeGoFile(t, `package mathmod

func Add(a, b int) int { return a + b }

func Subtract(a, b int) int { return a - b }
`)
	registry.Register(path, registry.Export{
		Default:  func(a, b int) int { return a + b },
		Callable: true,
		Named:    map[string]any{},
	})

	in := NewIntrospector()
	err := CrossCheck(in, path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Subtract")
}

func TestCrossCheck_Clean(t *testing.T) {
	path := writeGoFile(t, `package mathmod

func Add(a, b int) int { return a + b }
`)
	registry.Register(path, registry.Export{
		Default:  func(a, b int) int { return a + b },
		Callable: true,
	})

	in := NewIntrospector()
	assert.NoError(t, CrossCheck(in, path))
}
