package oms

import (
	"fmt"
	"math"
	"time"

	"github.com/velostrade/bookcore/pkg/core"
)

// Req is one application-level request (new/modify/cancel) within an
// AOS's chain. Identity fields are immutable after construction; the
// owning connector maintains the mutable lifecycle fields as venue
// responses arrive. Requests are arena-owned; chains link by index.
type Req struct {
	aos *AOS
	ix  int32

	// Identity, immutable after construction.
	ID        int64
	OrigID    int64 // 0 for New kinds, the modified/cancelled req otherwise
	Kind      Kind
	Px        core.Price
	IsAggr    bool
	Qty       core.Qty
	QtyShow   core.Qty
	QtyMin    core.Qty
	PegSide   core.Side
	PegOffset float64
	TsMDExch  time.Time
	TsMDConn  time.Time
	TsMDStrat time.Time
	TsCreated time.Time

	// Mutable lifecycle state.
	Status         Status
	SeqNum         int64
	LeavesQty      core.Qty
	WillFail       bool
	ProbFilled     bool
	ThrottledUntil time.Time
	ExchOrdID      string
	MDEntryID      string
	TsSent         time.Time
	TsConfExch     time.Time
	TsConfConn     time.Time
	TsEndExch      time.Time
	TsEndConn      time.Time

	prev int32
	next int32
}

// ReqParams carries the constructor arguments of a request.
type ReqParams struct {
	AOS    *AOS
	Attach bool
	ID     int64
	OrigID int64
	Kind   Kind
	Px     core.Price
	IsAggr bool
	Qty    core.Qty
	// QtyShow/QtyMin apply to quantity-carrying kinds; leave invalid to
	// default them to Qty and zero respectively.
	QtyShow   core.Qty
	QtyMin    core.Qty
	PegSide   core.Side
	PegOffset float64
	TsMDExch  time.Time
	TsMDConn  time.Time
	TsMDStrat time.Time
	TsCreated time.Time
}

// NewReq validates and allocates a request, attaching it to its AOS chain
// when p.Attach is set.
func (a *Arena) NewReq(p ReqParams) (*Req, error) {
	if p.AOS == nil {
		return nil, ErrNilAOS
	}
	if p.AOS.arena != a {
		return nil, fmt.Errorf("%w: AOS from a different arena", ErrInvalidArgument)
	}
	if p.ID <= 0 {
		return nil, fmt.Errorf("%w: id=%d", ErrBadReqID, p.ID)
	}
	if p.ID <= p.OrigID {
		return nil, fmt.Errorf("%w: id=%d not greater than origID=%d", ErrBadReqID, p.ID, p.OrigID)
	}
	if isNewKind(p.Kind) != (p.OrigID == 0) {
		return nil, fmt.Errorf("%w: kind=%s origID=%d", ErrBadOrigID, p.Kind, p.OrigID)
	}

	qty := p.Qty
	qtyShow := p.QtyShow
	qtyMin := p.QtyMin
	if isCancelKind(p.Kind) {
		if !qty.IsSpecial0() {
			return nil, fmt.Errorf("%w: %s requires the special-zero qty", ErrBadQty, p.Kind)
		}
	} else {
		if !qty.IsPos() {
			return nil, fmt.Errorf("%w: %s requires positive qty", ErrBadQty, p.Kind)
		}
		if _, err := qty.Decimal(p.AOS.QtyKind); err != nil {
			return nil, err
		}
		if !p.AOS.WithFracQtys {
			f, _ := qty.Float(p.AOS.QtyKind)
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("%w: fractional qty on whole-qty order", ErrBadQty)
			}
		}
		if !qtyShow.IsValid() {
			qtyShow = qty
		}
		if !qtyMin.IsValid() {
			qtyMin = core.ZeroQty(p.AOS.QtyKind)
		}
		for _, q := range []core.Qty{qtyShow, qtyMin} {
			if q.IsNeg() {
				return nil, fmt.Errorf("%w: negative", ErrBadQtyShow)
			}
			c, err := q.Cmp(qty)
			if err != nil {
				return nil, err
			}
			if c > 0 {
				return nil, fmt.Errorf("%w: exceeds qty", ErrBadQtyShow)
			}
		}
	}

	if p.Attach && p.AOS.firstReq == noIx && !qty.IsPos() {
		return nil, fmt.Errorf("%w: first request of AOS %d must carry qty", ErrBadQty, p.AOS.ID)
	}

	r, ix := a.allocReq()
	*r = Req{
		aos:       p.AOS,
		ix:        ix,
		ID:        p.ID,
		OrigID:    p.OrigID,
		Kind:      p.Kind,
		Px:        p.Px,
		IsAggr:    p.IsAggr,
		Qty:       qty,
		QtyShow:   qtyShow,
		QtyMin:    qtyMin,
		PegSide:   p.PegSide,
		PegOffset: p.PegOffset,
		TsMDExch:  p.TsMDExch,
		TsMDConn:  p.TsMDConn,
		TsMDStrat: p.TsMDStrat,
		TsCreated: p.TsCreated,
		Status:    StatusIndicated,
		LeavesQty: qty,
		prev:      noIx,
		next:      noIx,
	}
	if isCancelKind(p.Kind) {
		r.LeavesQty = core.ZeroQty(p.AOS.QtyKind)
	}
	if p.Attach {
		p.AOS.attachReq(r, ix)
	}
	return r, nil
}

// AOS returns the owning order.
func (r *Req) AOS() *AOS { return r.aos }

// Prev returns the previous request in the chain, nil at the head.
func (r *Req) Prev() *Req { return r.aos.arena.req(r.prev) }

// Next returns the next request in the chain, nil at the tail.
func (r *Req) Next() *Req { return r.aos.arena.req(r.next) }

// IsModPending reports whether this request is being modified: the next
// chained request is a not-yet-terminal modify and this request itself
// is still live. A terminal request has nothing pending against it even
// when the rest of the order is still working.
func (r *Req) IsModPending() bool {
	n := r.Next()
	return n != nil && !n.Status.IsTerminal() &&
		(n.Kind == KindModify || n.Kind == KindModLegCancel) &&
		!r.Status.IsTerminal()
}

// IsCxlPending reports whether this request is being cancelled: the next
// chained request is a not-yet-terminal plain cancel and this request
// itself is still live.
func (r *Req) IsCxlPending() bool {
	n := r.Next()
	return n != nil && !n.Status.IsTerminal() &&
		n.Kind == KindCancel &&
		!r.Status.IsTerminal()
}

// MkTmpReqID derives a provisional positive request ID from a timestamp.
// Used by connectors that must send before the venue assigns an ID.
func MkTmpReqID(ts time.Time) int64 {
	return ts.UnixNano() & 0x7FFFFFFF
}
