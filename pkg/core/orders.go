package core

import (
	"fmt"

	"github.com/nikolaydubina/fpdecimal"
)

// applyOrder applies a market-by-order update: qty is a signed delta to
// the identified order's contribution. New orders join the tail of their
// level's chain; emptied orders are unlinked and their slot reset for
// reuse.
func (b *OrderBook) applyOrder(s *bookSide, action Action, px Price, qty Qty, orderID uint64) (bool, error) {
	if b.slots == nil {
		return false, ErrOrdersLogDisabled
	}
	if orderID >= uint64(len(b.slots)) {
		if !b.o.Relaxed {
			return false, fmt.Errorf("%w: id=%d max=%d", ErrMaxOrdersExceeded, orderID, len(b.slots))
		}
		b.log.Warn().Uint64("order_id", orderID).Msg("order ID off the slot array, discarded")
		return false, nil
	}
	slot := &b.slots[orderID]

	if action == ActionUndefined {
		switch {
		case !slot.Active:
			action = ActionNew
		case !qty.IsPos():
			action = ActionDelete
		default:
			action = ActionChange
		}
	}

	switch action {
	case ActionNew:
		if slot.Active {
			// The venue reused a live ID: replace, flagging the old record.
			b.log.Warn().Uint64("order_id", orderID).Msg("new order on a live slot, replacing")
			if _, err := b.removeOrder(s, orderID); err != nil {
				return false, err
			}
		}
		if !qty.IsPos() {
			return false, fmt.Errorf("%w: new order with non-positive qty", ErrInvalidQuantity)
		}
		return b.insertOrder(s, orderID, px, qty)

	case ActionChange:
		if !slot.Active {
			if b.o.NewEncdAsChange {
				if !qty.IsPos() {
					return false, fmt.Errorf("%w: new-as-change with non-positive qty", ErrInvalidQuantity)
				}
				return b.insertOrder(s, orderID, px, qty)
			}
			if !b.o.Relaxed {
				return false, fmt.Errorf("%w: id=%d", ErrOrderNotFound, orderID)
			}
			b.log.Warn().Uint64("order_id", orderID).Msg("change for unknown order, treating as new")
			if !qty.IsPos() {
				return false, nil
			}
			return b.insertOrder(s, orderID, px, qty)
		}
		if b.o.ChangeIsPartFill {
			// The feed reports the traded amount; take it off the order.
			qty = ZeroQty(b.o.QtyKind).addDec(fpdecimal.Zero.Sub(qty.dec()))
		}
		return b.changeOrder(s, orderID, px, qty)

	case ActionDelete:
		if !slot.Active {
			if !b.o.Relaxed {
				return false, fmt.Errorf("%w: id=%d", ErrOrderNotFound, orderID)
			}
			b.log.Debug().Uint64("order_id", orderID).Msg("delete for unknown order discarded")
			return false, nil
		}
		return b.removeOrder(s, orderID)
	}
	return false, fmt.Errorf("%w: action %d", ErrInvalidArgument, action)
}

// insertOrder activates the slot and attaches it to its level.
func (b *OrderBook) insertOrder(s *bookSide, orderID uint64, px Price, qty Qty) (bool, error) {
	key, err := s.sideKey(px, b.o.PxStep, b.o.Relaxed)
	if err != nil {
		return false, err
	}
	e, err := b.ensureLevel(s, key)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, nil
	}

	slot := &b.slots[orderID]
	slot.Active = true
	slot.ID = orderID
	slot.IsBid = s.isBid
	slot.Px = s.keyPx(key, b.o.PxStep)
	slot.Qty = qty
	slot.levelKey = key

	wasEmpty := e.IsEmpty()
	b.chainPushBack(e, int32(orderID))
	e.AggrQty = e.AggrQty.addDec(qty.dec())
	e.OrderCount++
	if wasEmpty {
		b.levelOccupied(s, key)
	}
	if err := b.repairLevel(s, key, e); err != nil {
		return true, err
	}
	return true, nil
}

// changeOrder applies a qty delta to a live order, migrating it when the
// price moved. A non-positive resulting qty deletes the order.
func (b *OrderBook) changeOrder(s *bookSide, orderID uint64, px Price, delta Qty) (bool, error) {
	slot := &b.slots[orderID]
	newQty := slot.Qty.addDec(delta.dec())
	if newQty.IsNeg() {
		b.log.Warn().Uint64("order_id", orderID).Str("qty", newQty.String()).Msg("negative order qty clamped to zero")
		newQty = ZeroQty(b.o.QtyKind)
	}

	if !slot.Px.Eq(px) {
		// Price move: reinsert at the new level.
		if _, err := b.removeOrder(s, orderID); err != nil {
			return false, err
		}
		if !newQty.IsPos() {
			return true, nil
		}
		return b.insertOrder(s, orderID, px, newQty)
	}

	if !newQty.IsPos() {
		return b.removeOrder(s, orderID)
	}

	key := slot.levelKey
	e := s.entryAt(key)
	if e == nil {
		return false, fmt.Errorf("%w: order %d has no level", ErrLogic, orderID)
	}
	e.AggrQty = e.AggrQty.addDec(newQty.dec().Sub(slot.Qty.dec()))
	slot.Qty = newQty
	if err := b.repairLevel(s, key, e); err != nil {
		return true, err
	}
	return true, nil
}

// removeOrder unlinks the order from its level and resets the slot.
func (b *OrderBook) removeOrder(s *bookSide, orderID uint64) (bool, error) {
	slot := &b.slots[orderID]
	key := slot.levelKey
	e := s.entryAt(key)
	if e == nil {
		slot.reset()
		return false, fmt.Errorf("%w: order %d has no level", ErrLogic, orderID)
	}

	b.chainUnlink(e, int32(orderID))
	e.AggrQty = e.AggrQty.addDec(fpdecimal.Zero.Sub(slot.Qty.dec()))
	e.OrderCount--
	slot.reset()

	if e.AggrQty.IsNeg() {
		b.log.Warn().Uint64("order_id", orderID).Msg("negative level qty clamped to zero")
		e.AggrQty = ZeroQty(b.o.QtyKind)
	}
	if e.OrderCount <= 0 || !e.AggrQty.IsPos() {
		if err := b.repairLevel(s, key, e); err != nil {
			return true, err
		}
	}
	return true, nil
}

// repairLevel enforces the level invariant (zero qty <=> zero orders).
// A consistent empty level is retired through emptyLevel; an inconsistent
// one is repaired and reported as a logic error so the caller surfaces
// EffectError.
func (b *OrderBook) repairLevel(s *bookSide, key int64, e *LevelEntry) error {
	zeroQty := !e.AggrQty.IsPos()
	zeroCnt := e.OrderCount <= 0
	switch {
	case zeroQty && zeroCnt:
		b.emptyLevel(s, key, e)
		return nil
	case zeroQty != zeroCnt:
		b.log.Error().
			Str("px", s.keyPx(key, b.o.PxStep).String()).
			Str("aggr_qty", e.AggrQty.String()).
			Int32("order_count", e.OrderCount).
			Msg("level qty/order-count mismatch, level reset")
		b.emptyLevel(s, key, e)
		return fmt.Errorf("%w: level qty/order-count mismatch", ErrLogic)
	default:
		return nil
	}
}

// chainPushBack appends the slot to the level's order chain.
func (b *OrderBook) chainPushBack(e *LevelEntry, ix int32) {
	sl := &b.slots[ix]
	sl.Prev = e.Last
	sl.Next = noSlot
	if e.Last != noSlot {
		b.slots[e.Last].Next = ix
	} else {
		e.First = ix
	}
	e.Last = ix
}

// chainUnlink detaches the slot from the level's order chain.
func (b *OrderBook) chainUnlink(e *LevelEntry, ix int32) {
	sl := &b.slots[ix]
	if sl.Prev != noSlot {
		b.slots[sl.Prev].Next = sl.Next
	} else {
		e.First = sl.Next
	}
	if sl.Next != noSlot {
		b.slots[sl.Next].Prev = sl.Prev
	} else {
		e.Last = sl.Prev
	}
	sl.Prev = noSlot
	sl.Next = noSlot
}
