// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package instance

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_GeneratesDistinctIDs(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestRegisterLookupUnregister(t *testing.T) {
	d := &Data{ID: NewID()}
	Register(d)

	found, ok := Lookup(d.ID)
	require.True(t, ok)
	assert.Same(t, d, found)

	Unregister(d.ID)
	_, ok = Lookup(d.ID)
	assert.False(t, ok)
}

func TestShutdown_RunsOnShutdownExactlyOnce(t *testing.T) {
	var calls atomic.Int32
	d := &Data{ID: NewID(), OnShutdown: func() { calls.Add(1) }}
	Register(d)

	d.Shutdown()
	d.Shutdown()
	d.Shutdown()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, d.ShuttingDown())

	_, ok := Lookup(d.ID)
	assert.False(t, ok)
}

func TestShutdown_ConcurrentCallsRunOnShutdownOnce(t *testing.T) {
	var calls atomic.Int32
	d := &Data{ID: NewID(), OnShutdown: func() { calls.Add(1) }}
	Register(d)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Shutdown()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestWithReloadLock_SerializesCallers(t *testing.T) {
	d := &Data{ID: NewID()}
	var active atomic.Int32
	var maxActive atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.WithReloadLock(func() error {
				n := active.Add(1)
				if n > maxActive.Load() {
					maxActive.Store(n)
				}
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestCount_ReflectsRegisteredInstances(t *testing.T) {
	before := Count()
	d := &Data{ID: NewID()}
	Register(d)
	assert.Equal(t, before+1, Count())
	Unregister(d.ID)
	assert.Equal(t, before, Count())
}
