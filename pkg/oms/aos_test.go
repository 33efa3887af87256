package oms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velostrade/bookcore/pkg/core"
)

func TestNewAOSValidation(t *testing.T) {
	a := NewArena(nil)

	tests := []struct {
		name string
		p    AOSParams
	}{
		{"ZeroID", AOSParams{Instr: "X", Side: core.Bid, QtyKind: core.QtyContracts}},
		{"EmptyInstr", AOSParams{ID: 1, Side: core.Bid, QtyKind: core.QtyContracts}},
		{"BadSide", AOSParams{ID: 1, Instr: "X", QtyKind: core.QtyContracts}},
		{"GTDWithoutExpire", AOSParams{ID: 1, Instr: "X", Side: core.Bid, QtyKind: core.QtyContracts, TimeInForce: TIFGoodTillDate}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.NewAOS(tt.p)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	p := testAOSParams(1)
	p.TimeInForce = TIFGoodTillDate
	p.ExpireDate = 20261231
	_, err := a.NewAOS(p)
	assert.NoError(t, err)
}

func TestAOSLiveStates(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	attachNew(t, a, aos, 10, 5)

	// An active order is neither filled nor cancelled
	filled, err := aos.IsFilled()
	require.NoError(t, err)
	assert.False(t, filled)
	cancelled, err := aos.IsCancelled()
	require.NoError(t, err)
	assert.False(t, cancelled)
	assert.False(t, aos.HasFailed())
}

func TestAOSFilled(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	r := attachNew(t, a, aos, 10, 5)
	r.Status = StatusFilled
	r.LeavesQty = core.ZeroQty(core.QtyContracts)
	aos.IsInactive = true

	filled, err := aos.IsFilled()
	require.NoError(t, err)
	assert.True(t, filled)
	cancelled, err := aos.IsCancelled()
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestAOSCancelledViaCancelReq(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	r := attachNew(t, a, aos, 10, 5)
	r.Status = StatusConfirmed

	cxl, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     11,
		OrigID: 10,
		Kind:   KindCancel,
		Qty:    core.Special0Qty(core.QtyContracts),
	})
	require.NoError(t, err)
	cxl.Status = StatusConfirmed
	r.Status = StatusCancelled
	aos.IsInactive = true
	aos.CxlPending = 0

	cancelled, err := aos.IsCancelled()
	require.NoError(t, err)
	assert.True(t, cancelled)
	filled, err := aos.IsFilled()
	require.NoError(t, err)
	assert.False(t, filled)
}

func TestAOSUnsolicitedCancel(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	r := attachNew(t, a, aos, 10, 5)
	r.Status = StatusCancelled
	aos.IsInactive = true

	cancelled, err := aos.IsCancelled()
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestAOSFilledSkipsCancelLegs(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	r := attachNew(t, a, aos, 10, 5)
	r.Status = StatusFilled

	// A losing-race cancel after the fill must not change the verdict
	cxl, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     11,
		OrigID: 10,
		Kind:   KindCancel,
		Qty:    core.Special0Qty(core.QtyContracts),
	})
	require.NoError(t, err)
	cxl.Status = StatusFailed
	aos.IsInactive = true
	aos.CxlPending = 0

	filled, err := aos.IsFilled()
	require.NoError(t, err)
	assert.True(t, filled)
	cancelled, err := aos.IsCancelled()
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestAOSHasFailed(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	r := attachNew(t, a, aos, 10, 5)
	r.Status = StatusFailed
	aos.IsInactive = true

	assert.True(t, aos.HasFailed())
	filled, err := aos.IsFilled()
	require.NoError(t, err)
	assert.False(t, filled)
	cancelled, err := aos.IsCancelled()
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestAOSChainCorrupt(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	r := attachNew(t, a, aos, 10, 5)
	r.Status = StatusConfirmed
	// Inactive without any terminal evidence on the chain
	aos.IsInactive = true

	_, err := aos.IsFilled()
	assert.ErrorIs(t, err, ErrChainCorrupt)
	_, err = aos.IsCancelled()
	assert.ErrorIs(t, err, ErrChainCorrupt)
}

func TestAOSGetLeavesQty(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	r := attachNew(t, a, aos, 10, 5)
	r.LeavesQty = contracts(3)

	_, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     11,
		OrigID: 10,
		Kind:   KindCancel,
		Qty:    core.Special0Qty(core.QtyContracts),
	})
	require.NoError(t, err)

	// Cancel legs are skipped: leaves come from the last qty-carrying req
	lv, err := aos.GetLeavesQty()
	require.NoError(t, err)
	c, err := lv.Cmp(contracts(3))
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestAOSGetLeavesQtyNoReq(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)

	_, err := aos.GetLeavesQty()
	assert.ErrorIs(t, err, ErrNoQtyReq)
}
