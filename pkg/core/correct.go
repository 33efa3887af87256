package core

import (
	"fmt"

	"github.com/nikolaydubina/fpdecimal"
)

// IsConsistent reports whether the book is uncrossed: with both sides
// non-empty, bestBid < bestAsk within tolerance. A book with an empty
// side is trivially consistent.
func (b *OrderBook) IsConsistent() bool {
	if b.bid.empty() || b.ask.empty() {
		return true
	}
	return b.bid.bestPx.Less(b.ask.bestPx)
}

// CorrectBook resolves a crossed book by discarding liquidity from the
// stalest-updated side: the side opposite to the one the last update
// touched. Levels at or beyond half a price step past the fresher side's
// best are removed, order chains included. Returns which sides changed.
func (b *OrderBook) CorrectBook() UpdatedSides {
	if b.IsConsistent() {
		return UpdatedNone
	}

	res := UpdatedNone
	if b.lastUpdatedBid {
		thresh := Price(b.bid.bestPx.Float64() + b.o.PxStep/2)
		for !b.ask.empty() && b.ask.bestPx.Less(thresh) {
			b.log.Warn().
				Str("ask_px", b.ask.bestPx.String()).
				Str("bid_px", b.bid.bestPx.String()).
				Msg("crossed book: discarding stale ask level")
			b.emptyLevel(&b.ask, b.ask.bestKey, b.ask.bestEntry())
			res |= UpdatedAsk
		}
	} else {
		thresh := Price(b.ask.bestPx.Float64() - b.o.PxStep/2)
		for !b.bid.empty() && b.bid.bestPx.Greater(thresh) {
			b.log.Warn().
				Str("bid_px", b.bid.bestPx.String()).
				Str("ask_px", b.ask.bestPx.String()).
				Msg("crossed book: discarding stale bid level")
			b.emptyLevel(&b.bid, b.bid.bestKey, b.bid.bestEntry())
			res |= UpdatedBid
		}
	}
	return res
}

// CheckLevel verifies the invariants of the level at the given price.
// The shallow check validates the qty/order-count/chain-head relation;
// the deep check additionally walks the order chain and compares its
// length and quantity sum against the level aggregates. An absent level
// is valid.
func (b *OrderBook) CheckLevel(side Side, px Price, deep bool) error {
	if !side.Valid() {
		return ErrInvalidSide
	}
	s := b.side(side)
	key, err := s.sideKey(px, b.o.PxStep, b.o.Relaxed)
	if err != nil {
		return err
	}
	e := s.entryAt(key)
	if e == nil {
		return nil
	}
	return b.checkEntry(s, key, e, deep)
}

func (b *OrderBook) checkEntry(s *bookSide, key int64, e *LevelEntry, deep bool) error {
	px := s.keyPx(key, b.o.PxStep)
	if !e.consistent(b.slots != nil) {
		return fmt.Errorf("%w: level %s: qty=%s count=%d first=%d",
			ErrLogic, px, e.AggrQty, e.OrderCount, e.First)
	}
	if !deep || b.slots == nil {
		return nil
	}

	var n int32
	sum := fpdecimal.Zero
	for ix := e.First; ix != noSlot; ix = b.slots[ix].Next {
		sl := &b.slots[ix]
		if !sl.Active {
			return fmt.Errorf("%w: level %s: inactive slot %d in chain", ErrLogic, px, ix)
		}
		if sl.IsBid != s.isBid || sl.levelKey != key {
			return fmt.Errorf("%w: level %s: slot %d chained to wrong level", ErrLogic, px, ix)
		}
		sum = sum.Add(sl.Qty.dec())
		n++
	}
	if n != e.OrderCount {
		return fmt.Errorf("%w: level %s: chain len %d != order count %d", ErrLogic, px, n, e.OrderCount)
	}
	if !sum.Equal(e.AggrQty.dec()) {
		return fmt.Errorf("%w: level %s: chain qty %s != aggr qty %s", ErrLogic, px, sum, e.AggrQty)
	}
	return nil
}

// CheckBook verifies every tracked level on both sides plus the crossing
// invariant. Intended for tests and periodic self-audit, not the hot path.
func (b *OrderBook) CheckBook(deep bool) error {
	if !b.IsConsistent() {
		return fmt.Errorf("%w: crossed book: bid=%s ask=%s", ErrLogic, b.bid.bestPx, b.ask.bestPx)
	}
	for _, side := range []Side{Bid, Ask} {
		s := b.side(side)
		var err error
		n := 0
		b.traverseSide(s, 0, func(key int64, e *LevelEntry) bool {
			if err = b.checkEntry(s, key, e, deep); err != nil {
				return false
			}
			n++
			return true
		})
		if err != nil {
			return err
		}
		if n != s.depth {
			return fmt.Errorf("%w: %s depth %d != tracked %d", ErrLogic, side, n, s.depth)
		}
	}
	return nil
}
