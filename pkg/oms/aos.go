package oms

import (
	"fmt"

	"github.com/velostrade/bookcore/pkg/core"
)

// AOS (Active Order Status) is the equivalence class of one client
// order's lifecycle: immutable identity plus the chronological chain of
// requests and trades attached over its life. AOS records are arena-owned
// and must not be copied.
type AOS struct {
	arena *Arena

	// Identity, immutable after construction.
	ID           int64
	Instr        string
	Side         core.Side
	OrdType      OrderType
	TimeInForce  TimeInForce
	ExpireDate   int // YYYYMMDD, 0 unless TIF is GTD
	QtyKind      core.QtyKind
	WithFracQtys bool
	IsIceberg    bool
	Strategy     string
	Account      string

	// Chain state.
	firstReq  int32
	lastReq   int32
	lastTrade int32

	// Lifecycle state, maintained by the owning connector.
	IsInactive bool
	// CxlPending holds the request ID of an outstanding cancel, 0 when none.
	CxlPending   int64
	NFails       int
	CumFilledQty core.Qty
}

// AOSParams carries the identity of a new order.
type AOSParams struct {
	ID           int64
	Instr        string
	Side         core.Side
	OrdType      OrderType
	TimeInForce  TimeInForce
	ExpireDate   int
	QtyKind      core.QtyKind
	WithFracQtys bool
	IsIceberg    bool
	Strategy     string
	Account      string
}

// NewAOS allocates an AOS in the arena. Created once per new client
// order; requests and trades are attached over its life.
func (a *Arena) NewAOS(p AOSParams) (*AOS, error) {
	if p.ID <= 0 {
		return nil, fmt.Errorf("%w: AOS ID %d", ErrInvalidArgument, p.ID)
	}
	if p.Instr == "" {
		return nil, fmt.Errorf("%w: empty instrument", ErrInvalidArgument)
	}
	if !p.Side.Valid() {
		return nil, fmt.Errorf("%w: side %v", ErrInvalidArgument, p.Side)
	}
	if p.TimeInForce == TIFGoodTillDate && p.ExpireDate <= 0 {
		return nil, fmt.Errorf("%w: GTD without expire date", ErrInvalidArgument)
	}

	aos := a.allocAOS()
	*aos = AOS{
		arena:        a,
		ID:           p.ID,
		Instr:        p.Instr,
		Side:         p.Side,
		OrdType:      p.OrdType,
		TimeInForce:  p.TimeInForce,
		ExpireDate:   p.ExpireDate,
		QtyKind:      p.QtyKind,
		WithFracQtys: p.WithFracQtys,
		IsIceberg:    p.IsIceberg,
		Strategy:     p.Strategy,
		Account:      p.Account,
		firstReq:     noIx,
		lastReq:      noIx,
		lastTrade:    noIx,
		CumFilledQty: core.ZeroQty(p.QtyKind),
	}
	return aos, nil
}

// FirstReq returns the oldest request in the chain, nil when none.
func (a *AOS) FirstReq() *Req { return a.arena.req(a.firstReq) }

// LastReq returns the newest request in the chain, nil when none.
func (a *AOS) LastReq() *Req { return a.arena.req(a.lastReq) }

// LastTrade returns the most recent trade, nil when none.
func (a *AOS) LastTrade() *Trade { return a.arena.trade(a.lastTrade) }

// IsCxlPending reports whether a cancel is outstanding.
func (a *AOS) IsCxlPending() bool { return a.CxlPending != 0 }

// GetCumFilledQty returns the cached cumulative filled quantity.
func (a *AOS) GetCumFilledQty() core.Qty { return a.CumFilledQty }

// IsFilled reports whether the order ended filled. It short-circuits
// false while the order is active; otherwise it walks the request chain
// backward from the newest, skipping cancel-kind requests, and decides on
// the first Filled or Cancelled status found. A chain with neither must
// have a Failed first request: anything else is corrupt bookkeeping and
// is reported as ErrChainCorrupt, never silently absorbed.
func (a *AOS) IsFilled() (bool, error) {
	if !a.IsInactive {
		return false, nil
	}
	for ix := a.lastReq; ix != noIx; {
		r := a.arena.req(ix)
		ix = r.prev
		if isCancelKind(r.Kind) {
			continue
		}
		switch r.Status {
		case StatusFilled:
			return true, nil
		case StatusCancelled:
			return false, nil
		}
	}
	if f := a.FirstReq(); f != nil && f.Status == StatusFailed {
		return false, nil
	}
	return false, fmt.Errorf("%w: AOS %d: no Filled/Cancelled and first req not Failed", ErrChainCorrupt, a.ID)
}

// IsCancelled reports whether the order ended cancelled: either a cancel
// request was confirmed, or a quantity-carrying request reached the
// Cancelled status (unsolicited cancel). Walk rules mirror IsFilled.
func (a *AOS) IsCancelled() (bool, error) {
	if !a.IsInactive {
		return false, nil
	}
	for ix := a.lastReq; ix != noIx; {
		r := a.arena.req(ix)
		ix = r.prev
		if r.Kind == KindCancel && r.Status == StatusConfirmed {
			return true, nil
		}
		if isCancelKind(r.Kind) {
			continue
		}
		switch r.Status {
		case StatusCancelled:
			return true, nil
		case StatusFilled:
			return false, nil
		}
	}
	if f := a.FirstReq(); f != nil && f.Status == StatusFailed {
		return false, nil
	}
	return false, fmt.Errorf("%w: AOS %d: no cancel/fill evidence and first req not Failed", ErrChainCorrupt, a.ID)
}

// HasFailed reports whether the order never got in: it is inactive and
// its very first request failed.
func (a *AOS) HasFailed() bool {
	f := a.FirstReq()
	return a.IsInactive && f != nil && f.Status == StatusFailed
}

// GetLeavesQty returns the leaves quantity of the most recent
// quantity-carrying (non-cancel) request. An AOS without one was never
// given a New request, which is a caller bug reported as ErrNoQtyReq.
func (a *AOS) GetLeavesQty() (core.Qty, error) {
	for ix := a.lastReq; ix != noIx; {
		r := a.arena.req(ix)
		ix = r.prev
		if isCancelKind(r.Kind) {
			continue
		}
		return r.LeavesQty, nil
	}
	return core.InvalidQty(a.QtyKind), fmt.Errorf("%w: AOS %d", ErrNoQtyReq, a.ID)
}

// attachReq pushes a freshly constructed request onto the chain tail.
func (a *AOS) attachReq(r *Req, ix int32) {
	r.prev = a.lastReq
	r.next = noIx
	if a.lastReq != noIx {
		a.arena.req(a.lastReq).next = ix
	} else {
		a.firstReq = ix
	}
	a.lastReq = ix
	if r.Kind == KindCancel {
		a.CxlPending = r.ID
	}
}

// attachTrade pushes a trade onto the trade chain and folds our own
// executions into the cumulative filled quantity.
func (a *AOS) attachTrade(t *Trade, ix int32) error {
	t.prev = a.lastTrade
	t.next = noIx
	if a.lastTrade != noIx {
		a.arena.trade(a.lastTrade).next = ix
	}
	a.lastTrade = ix
	if t.IsOurTrade() {
		cum, err := a.CumFilledQty.Add(t.Qty)
		if err != nil {
			return err
		}
		a.CumFilledQty = cum
	}
	return nil
}
