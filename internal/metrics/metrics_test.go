// Copyright 2026 slothlet contributors
//
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordInvocation_IncrementsCounterAndHistogram(t *testing.T) {
	RecordInvocation("math.add", 10*time.Millisecond, "")
	count := testutil.ToFloat64(m.invocationsTotal.WithLabelValues("math.add"))
	assert.GreaterOrEqual(t, count, float64(1))
}

func TestRecordInvocation_ErrorKindIncrementsErrorCounter(t *testing.T) {
	RecordInvocation("math.divide", time.Millisecond, "target")
	count := testutil.ToFloat64(m.invocationErrors.WithLabelValues("math.divide", "target"))
	assert.GreaterOrEqual(t, count, float64(1))
}

func TestRecordHook_TracksFailures(t *testing.T) {
	RecordHook("before", true)
	count := testutil.ToFloat64(m.hookErrors.WithLabelValues("before"))
	assert.GreaterOrEqual(t, count, float64(1))
}

func TestRecordMaterialization_TracksDuration(t *testing.T) {
	RecordMaterialization("widgets", 5*time.Millisecond, false)
	count := testutil.ToFloat64(m.materializationsTotal.WithLabelValues("widgets"))
	assert.GreaterOrEqual(t, count, float64(1))
}

func TestRecordOwnershipMutationAndDenial(t *testing.T) {
	RecordOwnershipMutation("addApi")
	RecordOwnershipDenial("math.add")

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.ownershipMutationsTotal.WithLabelValues("addApi")), float64(1))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.ownershipDenialsTotal.WithLabelValues("math.add")), float64(1))
}
