// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothlet/slothlet/slotherr"
)

func TestStack_Claim_FirstClaimAlwaysSucceeds(t *testing.T) {
	s := NewStack()
	err := s.Claim("math.add", Frame{ModuleID: "core"}, Options{})
	require.NoError(t, err)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "core", cur.ModuleID)
}

func TestStack_Claim_SameModuleAlwaysAllowed(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "feature-a"}, Options{}))
	err := s.Claim("math.add", Frame{ModuleID: "feature-a", Metadata: map[string]any{"v": 2}}, Options{})
	require.NoError(t, err)

	cur, _ := s.Current()
	assert.Equal(t, 2, cur.Metadata["v"])
}

func TestStack_Claim_CrossModuleDeniedWithoutAllowOverwrite(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "feature-a"}, Options{}))

	err := s.Claim("math.add", Frame{ModuleID: "feature-b"}, Options{AllowAPIOverwrite: false})
	require.Error(t, err)

	var se *slotherr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, slotherr.Ownership, se.Kind)
	assert.Contains(t, err.Error(), "owned by module")
	assert.Contains(t, err.Error(), "feature-a")
}

func TestStack_Claim_CrossModuleAllowedWithAllowOverwrite(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "feature-a"}, Options{}))

	err := s.Claim("math.add", Frame{ModuleID: "feature-b"}, Options{AllowAPIOverwrite: true})
	require.NoError(t, err)

	cur, _ := s.Current()
	assert.Equal(t, "feature-b", cur.ModuleID)
}

func TestStack_Claim_ForceOverwriteRequiresHotReload(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "feature-a"}, Options{}))

	err := s.Claim("math.add", Frame{ModuleID: "feature-b"}, Options{ForceOverwrite: true, HotReload: false})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forceOverwrite requires hotReload")
}

func TestStack_Claim_ForceOverwriteWithHotReloadSucceeds(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "feature-a"}, Options{}))

	err := s.Claim("math.add", Frame{ModuleID: "feature-b"}, Options{ForceOverwrite: true, HotReload: true})
	require.NoError(t, err)
	cur, _ := s.Current()
	assert.Equal(t, "feature-b", cur.ModuleID)
}

func TestStack_Claim_DisjointPropsCoexist(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math", Frame{ModuleID: "feature-a", Props: []string{"Add"}}, Options{}))
	require.NoError(t, s.Claim("math", Frame{ModuleID: "feature-b", Props: []string{"Sub"}}, Options{}))

	frames := s.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, "feature-a", frames[0].ModuleID)
	assert.Equal(t, "feature-b", frames[1].ModuleID)
}

func TestStack_Release_CurrentOwnerRollsBackToPrevious(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "core"}, Options{}))
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "feature-a"}, Options{AllowAPIOverwrite: true}))

	removed, exposed, has := s.Release("feature-a")
	assert.True(t, removed)
	require.True(t, has)
	assert.Equal(t, "core", exposed.ModuleID)
}

func TestStack_Release_NonCurrentOwnerJustDrops(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "core"}, Options{}))
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "feature-a"}, Options{AllowAPIOverwrite: true}))

	removed, exposed, has := s.Release("core")
	assert.True(t, removed)
	require.True(t, has)
	assert.Equal(t, "feature-a", exposed.ModuleID)
	assert.Len(t, s.Frames(), 1)
}

func TestStack_Release_LastOwnerEmptiesStack(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "core"}, Options{}))

	removed, _, has := s.Release("core")
	assert.True(t, removed)
	assert.False(t, has)
	assert.True(t, s.Empty())
}

func TestStack_Release_UnknownModuleReturnsFalse(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Claim("math.add", Frame{ModuleID: "core"}, Options{}))

	removed, _, _ := s.Release("nonexistent")
	assert.False(t, removed)
}

func TestRemovePropsDiff(t *testing.T) {
	removed := RemovePropsDiff([]string{"Add", "Sub", "Mul"}, []string{"Add", "Mul"})
	assert.Equal(t, []string{"Sub"}, removed)
}

func TestRegistry_StackForCreatesOnFirstAccess(t *testing.T) {
	r := NewRegistry()
	s1 := r.StackFor("math.add")
	s2 := r.StackFor("math.add")
	assert.Same(t, s1, s2)
}

func TestRegistry_LockIsPerPath(t *testing.T) {
	r := NewRegistry()
	l1 := r.Lock("math.add")
	l2 := r.Lock("math.sub")
	assert.NotSame(t, l1, l2)
	assert.Same(t, l1, r.Lock("math.add"))
}

func TestRegistry_DeleteRemovesBookkeeping(t *testing.T) {
	r := NewRegistry()
	r.StackFor("math.add")
	r.Lock("math.add")
	r.Delete("math.add")

	assert.NotContains(t, r.Paths(), "math.add")
}

func TestRegistry_PathsSorted(t *testing.T) {
	r := NewRegistry()
	r.StackFor("zeta")
	r.StackFor("alpha")
	assert.Equal(t, []string{"alpha", "zeta"}, r.Paths())
}
