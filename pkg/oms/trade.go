package oms

import (
	"fmt"
	"time"

	"github.com/velostrade/bookcore/pkg/core"
)

// Trade is one execution record. Unlike AOS/Req it is a plain copyable
// value; the arena chain (prev/next) only applies to trades attached to
// an AOS.
type Trade struct {
	ID    int64
	MDC   string // reporting market-data connector, empty when unknown
	Instr string
	// OurReq is the originating request when this is our own execution,
	// nil for market trades observed on the feed.
	OurReq      *Req
	AccountID   int64
	ExecID      string
	Px          core.Price
	Qty         core.Qty
	Fee         core.Qty
	Aggressor   core.Side // side of the aggressor, SideUndefined if unknown
	AccountSide core.Side
	ExchTS      time.Time
	RecvTS      time.Time

	prev int32
	next int32
}

// TradeParams carries the constructor arguments of a trade.
type TradeParams struct {
	ID          int64
	MDC         string
	Instr       string
	OurReq      *Req
	AccountID   int64
	ExecID      string
	Px          core.Price
	Qty         core.Qty
	Fee         core.Qty
	Aggressor   core.Side
	AccountSide core.Side
	ExchTS      time.Time
	RecvTS      time.Time
	// Attach chains the trade onto OurReq's AOS and updates its
	// cumulative filled quantity. Requires OurReq.
	Attach bool
}

// NewTrade validates and allocates a trade record in the arena.
func (a *Arena) NewTrade(p TradeParams) (*Trade, error) {
	if p.Instr == "" {
		return nil, fmt.Errorf("%w: empty instrument", ErrBadTrade)
	}
	if p.RecvTS.IsZero() {
		return nil, fmt.Errorf("%w: empty receive timestamp", ErrBadTrade)
	}
	if !p.Px.IsFinite() || !p.Px.IsPos() {
		return nil, fmt.Errorf("%w: price %s", ErrBadTrade, p.Px)
	}
	if !p.Qty.IsPos() {
		return nil, fmt.Errorf("%w: non-positive qty", ErrBadTrade)
	}
	if p.Attach && p.OurReq == nil {
		return nil, fmt.Errorf("%w: attach without originating request", ErrBadTrade)
	}

	t, ix := a.allocTrade()
	*t = Trade{
		ID:          p.ID,
		MDC:         p.MDC,
		Instr:       p.Instr,
		OurReq:      p.OurReq,
		AccountID:   p.AccountID,
		ExecID:      p.ExecID,
		Px:          p.Px,
		Qty:         p.Qty,
		Fee:         p.Fee,
		Aggressor:   p.Aggressor,
		AccountSide: p.AccountSide,
		ExchTS:      p.ExchTS,
		RecvTS:      p.RecvTS,
		prev:        noIx,
		next:        noIx,
	}
	if p.Attach {
		if err := p.OurReq.aos.attachTrade(t, ix); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// IsOurTrade reports whether the trade originated from one of our own
// requests.
func (t *Trade) IsOurTrade() bool {
	return t.OurReq != nil
}

// Prev returns the previous trade in the AOS chain, nil at the head or
// for unattached trades.
func (t *Trade) Prev(a *Arena) *Trade { return a.trade(t.prev) }

// Next returns the next trade in the AOS chain, nil at the tail.
func (t *Trade) Next(a *Arena) *Trade { return a.trade(t.next) }
