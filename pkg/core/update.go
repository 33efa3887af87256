package core

import (
	"fmt"
	"math"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// Update applies one feed update in normal (post-init) mode and returns
// the strongest observable effect. Sequencing is enforced: a stale report
// sequence is swallowed as a no-op in relaxed mode and fails with
// ErrSequenceInversion otherwise. The counters advance to the maximum
// seen even when the update is rejected.
//
// With the orders log enabled, qty is a signed delta applied to the order
// identified by orderID; otherwise qty is the absolute aggregate target
// for the price level.
func (b *OrderBook) Update(side Side, action Action, px Price, qty Qty, rptSeq, seqNum int64, orderID uint64) (UpdateEffect, error) {
	return b.update(false, side, action, px, qty, rptSeq, seqNum, orderID)
}

// UpdateInit applies one update in init (snapshot-load) mode: duplicate
// and out-of-order sequences are tolerated, everything else behaves as
// Update.
func (b *OrderBook) UpdateInit(side Side, action Action, px Price, qty Qty, rptSeq, seqNum int64, orderID uint64) (UpdateEffect, error) {
	return b.update(true, side, action, px, qty, rptSeq, seqNum, orderID)
}

func (b *OrderBook) update(initMode bool, side Side, action Action, px Price, qty Qty, rptSeq, seqNum int64, orderID uint64) (UpdateEffect, error) {
	start := time.Now()
	eff, err := b.updateImpl(initMode, side, action, px, qty, rptSeq, seqNum, orderID)
	if b.met != nil {
		b.met.ObserveUpdate(b.instr, eff.String(), time.Since(start))
		b.met.SetDepth(b.instr, Bid.String(), int64(b.bid.depth))
		b.met.SetDepth(b.instr, Ask.String(), int64(b.ask.depth))
	}
	return eff, err
}

func (b *OrderBook) updateImpl(initMode bool, side Side, action Action, px Price, qty Qty, rptSeq, seqNum int64, orderID uint64) (UpdateEffect, error) {
	if !side.Valid() {
		return EffectError, ErrInvalidSide
	}
	if err := b.verifyQty(&qty, action); err != nil {
		return EffectError, err
	}
	if !px.IsFinite() {
		return EffectError, fmt.Errorf("%w: non-finite update price", ErrInvalidPrice)
	}

	ok, err := b.checkSeqs(initMode, rptSeq, seqNum)
	if err != nil {
		return EffectError, err
	}
	if !ok {
		if b.met != nil {
			b.met.IncSeqReject(b.instr)
		}
		return EffectNone, nil
	}

	s := b.side(side)
	oldBestPx := s.bestPx
	oldBestQty := fpdecimal.Zero
	if e := s.bestEntry(); e != nil {
		oldBestQty = e.AggrQty.dec()
	}

	var changed bool
	var applyErr error
	if b.o.WithOrdersLog {
		changed, applyErr = b.applyOrder(s, action, px, qty, orderID)
	} else {
		changed, applyErr = b.applyAggr(s, action, px, qty)
	}
	if applyErr != nil {
		return EffectError, applyErr
	}
	if changed {
		b.lastUpdatedBid = side == Bid
	}

	newBestQty := fpdecimal.Zero
	if e := s.bestEntry(); e != nil {
		newBestQty = e.AggrQty.dec()
	}
	return classifyEffect(oldBestPx, s.bestPx, oldBestQty, newBestQty, changed), nil
}

// classifyEffect derives the effect level from the best-of-side transition.
func classifyEffect(oldPx, newPx Price, oldQty, newQty fpdecimal.Decimal, changed bool) UpdateEffect {
	switch {
	case oldPx.IsFinite() != newPx.IsFinite(),
		oldPx.IsFinite() && newPx.IsFinite() && !oldPx.Eq(newPx):
		return EffectL1Px
	case !oldQty.Equal(newQty):
		return EffectL1Qty
	case changed:
		return EffectL2
	default:
		return EffectNone
	}
}

// verifyQty validates the inbound quantity against the book configuration.
// Delete actions may carry an invalid or zero quantity.
func (b *OrderBook) verifyQty(q *Qty, action Action) error {
	if !q.IsValid() {
		if action == ActionDelete {
			*q = ZeroQty(b.o.QtyKind)
			return nil
		}
		return ErrInvalidQuantity
	}
	if _, err := q.Decimal(b.o.QtyKind); err != nil {
		return err
	}
	if !b.o.WithFracQtys {
		f := q.dec().Float64()
		if f != math.Trunc(f) {
			return fmt.Errorf("%w: fractional qty on a whole-qty book", ErrInvalidQuantity)
		}
	}
	return nil
}

// checkSeqs enforces the sequencing rules and always advances the stored
// counters to the maximum seen. ok=false means the update must be
// silently discarded (relaxed mode only).
func (b *OrderBook) checkSeqs(initMode bool, rptSeq, seqNum int64) (ok bool, err error) {
	prevRpt, prevSeq := b.lastRptSeq, b.lastSeqNum
	if rptSeq > b.lastRptSeq {
		b.lastRptSeq = rptSeq
	}
	if seqNum > b.lastSeqNum {
		b.lastSeqNum = seqNum
	}
	if initMode {
		return true, nil
	}
	if b.o.WithRptSeqs && prevRpt > 0 {
		if rptSeq <= prevRpt {
			if !b.o.Relaxed {
				return false, fmt.Errorf("%w: rptSeq=%d last=%d", ErrSequenceInversion, rptSeq, prevRpt)
			}
			b.log.Debug().Int64("rpt_seq", rptSeq).Int64("last", prevRpt).Msg("stale report sequence discarded")
			return false, nil
		}
		if b.o.ContRptSeqs && rptSeq != prevRpt+1 {
			if !b.o.Relaxed {
				return false, fmt.Errorf("%w: rptSeq=%d last=%d", ErrSequenceGap, rptSeq, prevRpt)
			}
			b.log.Warn().Int64("rpt_seq", rptSeq).Int64("last", prevRpt).Msg("report sequence gap")
		}
	}
	if b.o.WithSeqNums && prevSeq > 0 && seqNum < prevSeq {
		if !b.o.Relaxed {
			return false, fmt.Errorf("%w: seqNum=%d last=%d", ErrSequenceInversion, seqNum, prevSeq)
		}
		b.log.Debug().Int64("seq_num", seqNum).Int64("last", prevSeq).Msg("stale seq num discarded")
		return false, nil
	}
	return true, nil
}

// applyAggr applies an aggregate (price-level) update: qty is the absolute
// target for the level.
func (b *OrderBook) applyAggr(s *bookSide, action Action, px Price, qty Qty) (bool, error) {
	key, err := s.sideKey(px, b.o.PxStep, b.o.Relaxed)
	if err != nil {
		return false, err
	}

	target := qty.dec()
	if action == ActionDelete {
		target = fpdecimal.Zero
	}
	if target.LessThan(fpdecimal.Zero) {
		b.log.Warn().Str("px", px.String()).Str("qty", qty.String()).Msg("negative aggregate qty clamped to zero")
		target = fpdecimal.Zero
	}

	if !target.GreaterThan(fpdecimal.Zero) {
		// Removal. Absent level means nothing to do.
		e := s.entryAt(key)
		if e == nil || e.IsEmpty() {
			return false, nil
		}
		b.emptyLevel(s, key, e)
		return true, nil
	}

	e, err := b.ensureLevel(s, key)
	if err != nil {
		return false, err
	}
	if e == nil {
		// Off-span in relaxed mode.
		return false, nil
	}

	wasEmpty := e.IsEmpty()
	oldQty := e.AggrQty.dec()
	e.AggrQty = NewQty(b.o.QtyKind, target)
	switch {
	case wasEmpty, action == ActionNew:
		e.OrderCount = 1
	case e.OrderCount == 0:
		e.OrderCount = 1
	}
	if wasEmpty {
		b.levelOccupied(s, key)
	}
	return wasEmpty || !oldQty.Equal(target), nil
}

// ensureLevel returns the level for key, creating it if needed. A nil
// entry with nil error means the update is off-span and must be ignored
// (relaxed dense mode only).
func (b *OrderBook) ensureLevel(s *bookSide, key int64) (*LevelEntry, error) {
	if s.levels != nil {
		if e, found := s.levels.Get(key); found {
			return e, nil
		}
		e := &LevelEntry{}
		e.reset(b.o.QtyKind)
		s.levels.Set(key, e)
		return e, nil
	}

	if s.bestIdx < 0 {
		// Empty side: seed the span around the first price.
		s.bestIdx = len(s.ents) / 2
		s.bestKey = key
		return &s.ents[s.bestIdx], nil
	}
	ix := s.bestIdx + int(key-s.bestKey)
	if ix < 0 {
		ix = b.recenter(s, ix)
	}
	if ix >= len(s.ents) {
		if !b.o.Relaxed {
			return nil, fmt.Errorf("%w: offset=%d span=%d", ErrBookSpanExceeded, ix, len(s.ents))
		}
		b.log.Debug().Int("offset", ix).Msg("off-span update discarded")
		return nil, nil
	}
	return &s.ents[ix], nil
}

// recenter shifts the dense array so that the (currently negative) target
// index lands at the middle of the span. Levels pushed off the worse end
// are discarded.
func (b *OrderBook) recenter(s *bookSide, ix int) int {
	delta := len(s.ents)/2 - ix
	for i := len(s.ents) - delta; i < len(s.ents); i++ {
		if i >= 0 && !s.ents[i].IsEmpty() {
			b.resetOrders(&s.ents[i])
			s.depth--
		}
	}
	for i := len(s.ents) - 1; i >= delta; i-- {
		s.ents[i] = s.ents[i-delta]
	}
	for i := 0; i < delta && i < len(s.ents); i++ {
		s.ents[i].reset(b.o.QtyKind)
	}
	s.bestIdx += delta
	return ix + delta
}

// levelOccupied records an empty->non-empty transition at key: maintains
// depth (evicting the worst level beyond MaxDepth) and the best price.
func (b *OrderBook) levelOccupied(s *bookSide, key int64) {
	s.depth++
	if b.o.MaxDepth > 0 && s.depth > b.o.MaxDepth {
		b.evictWorst(s)
	}
	if s.empty() || key < s.bestKey {
		b.setBest(s, key)
	}
}

// setBest points the side's best at key. The level at key must be
// non-empty.
func (b *OrderBook) setBest(s *bookSide, key int64) {
	if s.levels == nil {
		s.bestIdx += int(key - s.bestKey)
	}
	s.bestKey = key
	s.bestPx = s.keyPx(key, b.o.PxStep)
}

// emptyLevel records a non-empty->empty transition at key: resets the
// level (and its order chain), maintains depth and rescans the best when
// the best level was removed.
func (b *OrderBook) emptyLevel(s *bookSide, key int64, e *LevelEntry) {
	b.resetOrders(e)
	s.depth--
	if s.levels != nil {
		s.levels.Delete(key)
		if key == s.bestKey {
			if k, _, ok := s.levels.Min(); ok {
				b.setBest(s, k)
			} else {
				b.sideEmptied(s)
			}
		}
		return
	}
	if key != s.bestKey {
		return
	}
	for i := s.bestIdx + 1; i < len(s.ents); i++ {
		if !s.ents[i].IsEmpty() {
			b.setBest(s, s.bestKey+int64(i-s.bestIdx))
			return
		}
	}
	b.sideEmptied(s)
}

func (b *OrderBook) sideEmptied(s *bookSide) {
	s.bestIdx = -1
	s.bestKey = 0
	s.bestPx = EmptyPrice()
	s.depth = 0
}

// evictWorst discards the worst tracked level to honour MaxDepth.
func (b *OrderBook) evictWorst(s *bookSide) {
	if s.levels != nil {
		if k, e, ok := s.levels.Max(); ok {
			b.resetOrders(e)
			s.levels.Delete(k)
			s.depth--
		}
		return
	}
	for i := len(s.ents) - 1; i > s.bestIdx; i-- {
		if !s.ents[i].IsEmpty() {
			b.resetOrders(&s.ents[i])
			s.depth--
			return
		}
	}
}
