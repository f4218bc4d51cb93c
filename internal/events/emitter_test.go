// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothlet/slothlet/internal/reqcontext"
)

func TestEmitter_OnEmit_FiresInRegistrationOrder(t *testing.T) {
	e := NewEmitter()
	var seen []string
	e.On(context.Background(), "tick", func(ctx context.Context, payload any) { seen = append(seen, "first") })
	e.On(context.Background(), "tick", func(ctx context.Context, payload any) { seen = append(seen, "second") })

	e.Emit(context.Background(), "tick", nil)
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestEmitter_Off_RemovesListener(t *testing.T) {
	e := NewEmitter()
	fired := false
	id := e.On(context.Background(), "tick", func(ctx context.Context, payload any) { fired = true })

	ok := e.Off("tick", id)
	assert.True(t, ok)

	e.Emit(context.Background(), "tick", nil)
	assert.False(t, fired)
}

func TestEmitter_Off_UnknownIDReturnsFalse(t *testing.T) {
	e := NewEmitter()
	assert.False(t, e.Off("tick", 999))
}

func TestEmitter_UntrackedListener_UsesEmitContext(t *testing.T) {
	e := NewEmitter()

	registerCtx, err := reqcontext.Push(context.Background(), nil, reqcontext.Store{"who": "registerer"}, reqcontext.MergeShallow)
	require.NoError(t, err)

	var gotUser any
	e.On(registerCtx, "tick", func(ctx context.Context, payload any) {
		store, _ := reqcontext.Current(ctx)
		gotUser = store["who"]
	})

	emitCtx, err := reqcontext.Push(context.Background(), nil, reqcontext.Store{"who": "emitter"}, reqcontext.MergeShallow)
	require.NoError(t, err)

	e.Emit(emitCtx, "tick", nil)
	assert.Equal(t, "emitter", gotUser)
}

func TestEmitter_TrackedListener_ReplaysRegistrationContext(t *testing.T) {
	e := NewEmitter()
	e.Track()

	registerCtx, err := reqcontext.Push(context.Background(), nil, reqcontext.Store{"who": "registerer"}, reqcontext.MergeShallow)
	require.NoError(t, err)

	var gotUser any
	e.On(registerCtx, "tick", func(ctx context.Context, payload any) {
		store, _ := reqcontext.Current(ctx)
		gotUser = store["who"]
	})

	emitCtx, err := reqcontext.Push(context.Background(), nil, reqcontext.Store{"who": "emitter"}, reqcontext.MergeShallow)
	require.NoError(t, err)

	e.Emit(emitCtx, "tick", nil)
	assert.Equal(t, "registerer", gotUser)
}

func TestEmitter_Shutdown_KeepsUntrackedListeners(t *testing.T) {
	e := NewEmitter()
	e.On(context.Background(), "tick", func(ctx context.Context, payload any) {})

	e.Track()
	e.On(context.Background(), "tick", func(ctx context.Context, payload any) {})

	assert.Equal(t, 2, e.ListenerCount("tick"))
	e.Shutdown()
	assert.Equal(t, 1, e.ListenerCount("tick"))
}

func TestEmitter_ListenerCount(t *testing.T) {
	e := NewEmitter()
	assert.Equal(t, 0, e.ListenerCount("tick"))
	e.On(context.Background(), "tick", func(ctx context.Context, payload any) {})
	assert.Equal(t, 1, e.ListenerCount("tick"))
}
