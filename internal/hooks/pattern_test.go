// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package hooks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandBraces_NoBraces(t *testing.T) {
	out, err := ExpandBraces("math.add")
	require.NoError(t, err)
	assert.Equal(t, []string{"math.add"}, out)
}

func TestExpandBraces_SingleLevel(t *testing.T) {
	out, err := ExpandBraces("math.{add,sub}")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"math.add", "math.sub"}, out)
}

func TestExpandBraces_Nested(t *testing.T) {
	out, err := ExpandBraces("{a,b{c,d}}")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "bc", "bd"}, out)
}

func TestExpandBraces_DepthExceeded(t *testing.T) {
	pattern := "x"
	for i := 0; i < 12; i++ {
		pattern = "{" + pattern + "}"
	}
	_, err := ExpandBraces(pattern)
	assert.ErrorIs(t, err, ErrBraceDepth)
}

func TestMatches_SingleSegmentWildcard(t *testing.T) {
	ok, err := Matches("math.*", "math.add")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches("math.*", "math.trig.sin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatches_DoubleStarAnySegments(t *testing.T) {
	ok, err := Matches("math.**", "math.trig.sin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches("**", "anything.at.all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatches_EmptyPatternMatchesEverything(t *testing.T) {
	ok, err := Matches("", "anything.at.all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatches_BraceAlternation(t *testing.T) {
	ok, err := Matches("math.{add,sub}", "math.sub")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches("math.{add,sub}", "math.mul")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatches_Negation(t *testing.T) {
	ok, err := Matches("!math.add", "math.sub")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches("!math.add", "math.add")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPatternToRegex_LiteralDotsEscaped(t *testing.T) {
	re := PatternToRegex("math.add")
	assert.True(t, strings.Contains(re, `math\.add`))
}
