package oms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velostrade/bookcore/pkg/core"
)

func newTestAOS(t *testing.T, a *Arena) *AOS {
	t.Helper()
	aos, err := a.NewAOS(testAOSParams(1))
	require.NoError(t, err)
	return aos
}

func contracts(v float64) core.Qty {
	return core.QtyFromFloat(core.QtyContracts, v)
}

func attachNew(t *testing.T, a *Arena, aos *AOS, id int64, qty float64) *Req {
	t.Helper()
	r, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     id,
		Kind:   KindNew,
		Px:     100.0,
		Qty:    contracts(qty),
	})
	require.NoError(t, err)
	return r
}

func TestNewReqDefaults(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)

	r := attachNew(t, a, aos, 10, 5)
	assert.Equal(t, StatusIndicated, r.Status)
	assert.Equal(t, contracts(5).String(), r.LeavesQty.String())
	// QtyShow defaults to the full quantity, QtyMin to zero
	assert.Equal(t, contracts(5).String(), r.QtyShow.String())
	assert.True(t, r.QtyMin.IsZero())
	assert.Same(t, aos, r.AOS())
	assert.Same(t, r, aos.FirstReq())
	assert.Same(t, r, aos.LastReq())
	assert.Nil(t, r.Prev())
	assert.Nil(t, r.Next())
}

func TestNewReqValidation(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	attachNew(t, a, aos, 10, 5)

	tests := []struct {
		name string
		p    ReqParams
		want error
	}{
		{"NilAOS", ReqParams{ID: 11, Kind: KindNew, Qty: contracts(1)}, ErrNilAOS},
		{"ZeroID", ReqParams{AOS: aos, ID: 0, Kind: KindNew, Qty: contracts(1)}, ErrBadReqID},
		{"IDNotAboveOrig", ReqParams{AOS: aos, ID: 9, OrigID: 10, Kind: KindModify, Qty: contracts(1)}, ErrBadReqID},
		{"NewWithOrig", ReqParams{AOS: aos, ID: 11, OrigID: 10, Kind: KindNew, Qty: contracts(1)}, ErrBadOrigID},
		{"ModifyWithoutOrig", ReqParams{AOS: aos, ID: 11, Kind: KindModify, Qty: contracts(1)}, ErrBadOrigID},
		{"CancelWithPlainZero", ReqParams{AOS: aos, ID: 11, OrigID: 10, Kind: KindCancel, Qty: core.ZeroQty(core.QtyContracts)}, ErrBadQty},
		{"CancelWithQty", ReqParams{AOS: aos, ID: 11, OrigID: 10, Kind: KindCancel, Qty: contracts(5)}, ErrBadQty},
		{"ModifyZeroQty", ReqParams{AOS: aos, ID: 11, OrigID: 10, Kind: KindModify, Qty: core.ZeroQty(core.QtyContracts)}, ErrBadQty},
		{"WrongKind", ReqParams{AOS: aos, ID: 11, OrigID: 10, Kind: KindModify, Qty: core.QtyFromFloat(core.QtyLots, 5)}, core.ErrQtyKindMismatch},
		{"FractionalQty", ReqParams{AOS: aos, ID: 11, OrigID: 10, Kind: KindModify, Qty: contracts(1.5)}, ErrBadQty},
		{"QtyShowAboveQty", ReqParams{AOS: aos, ID: 11, OrigID: 10, Kind: KindModify, Qty: contracts(5), QtyShow: contracts(10)}, ErrBadQtyShow},
		{"NegativeQtyMin", ReqParams{AOS: aos, ID: 11, OrigID: 10, Kind: KindModify, Qty: contracts(5), QtyMin: contracts(-1)}, ErrBadQtyShow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.NewReq(tt.p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewReqCancel(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)
	attachNew(t, a, aos, 10, 5)

	c, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     11,
		OrigID: 10,
		Kind:   KindCancel,
		Qty:    core.Special0Qty(core.QtyContracts),
	})
	require.NoError(t, err)
	assert.True(t, c.LeavesQty.IsZero())
	assert.True(t, aos.IsCxlPending())
	assert.Equal(t, int64(11), aos.CxlPending)
}

func TestFirstReqMustCarryQty(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)

	_, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     10,
		OrigID: 9,
		Kind:   KindCancel,
		Qty:    core.Special0Qty(core.QtyContracts),
	})
	assert.ErrorIs(t, err, ErrBadQty)

	// Unattached construction is not subject to the first-req rule
	_, err = a.NewReq(ReqParams{
		AOS:    aos,
		ID:     10,
		OrigID: 9,
		Kind:   KindCancel,
		Qty:    core.Special0Qty(core.QtyContracts),
	})
	assert.NoError(t, err)
}

func TestFractionalQtyOrder(t *testing.T) {
	a := NewArena(nil)
	p := testAOSParams(2)
	p.WithFracQtys = true
	aos, err := a.NewAOS(p)
	require.NoError(t, err)

	_, err = a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     10,
		Kind:   KindNew,
		Qty:    contracts(1.5),
	})
	assert.NoError(t, err)
}

func TestReqChainLinks(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)

	r1 := attachNew(t, a, aos, 10, 5)
	r2, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     11,
		OrigID: 10,
		Kind:   KindModify,
		Px:     100.5,
		Qty:    contracts(8),
	})
	require.NoError(t, err)

	assert.Same(t, r1, aos.FirstReq())
	assert.Same(t, r2, aos.LastReq())
	assert.Same(t, r2, r1.Next())
	assert.Same(t, r1, r2.Prev())
}

func TestModCxlPending(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)

	r1 := attachNew(t, a, aos, 10, 5)
	r1.Status = StatusConfirmed
	assert.False(t, r1.IsModPending())
	assert.False(t, r1.IsCxlPending())

	mod, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     11,
		OrigID: 10,
		Kind:   KindModify,
		Qty:    contracts(8),
	})
	require.NoError(t, err)
	assert.True(t, r1.IsModPending())
	assert.False(t, r1.IsCxlPending())

	// A terminal modify no longer counts as pending
	mod.Status = StatusReplaced
	assert.False(t, r1.IsModPending())

	cxl, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     12,
		OrigID: 11,
		Kind:   KindCancel,
		Qty:    core.Special0Qty(core.QtyContracts),
	})
	require.NoError(t, err)
	assert.True(t, mod.IsCxlPending())
	assert.False(t, mod.IsModPending())
	_ = cxl

	// A terminal request has nothing pending against it, even while the
	// rest of the order keeps working
	mod.Status = StatusReplaced
	assert.False(t, mod.IsCxlPending())
}

func TestPendingOnTerminalReq(t *testing.T) {
	a := NewArena(nil)
	aos := newTestAOS(t, a)

	r1 := attachNew(t, a, aos, 10, 5)
	r1.Status = StatusReplaced

	mod, err := a.NewReq(ReqParams{
		AOS:    aos,
		Attach: true,
		ID:     11,
		OrigID: 10,
		Kind:   KindModify,
		Qty:    contracts(8),
	})
	require.NoError(t, err)
	mod.Status = StatusNew

	// The replaced request is done: the live modify is pending against
	// the order, not against its terminal predecessor
	assert.False(t, r1.IsModPending())
	assert.False(t, r1.IsCxlPending())
}
