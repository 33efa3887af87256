package core

// noSlot is the nil value of order-slot chain links.
const noSlot int32 = -1

// LevelEntry is one price level of the book: the aggregated quantity, the
// number of resting orders and, when the orders log is enabled, the head
// and tail of the intrusive order chain at this level. Chain links are
// indices into the book's flat order-slot array rather than pointers.
//
// Invariant: OrderCount == 0 <=> AggrQty == 0 <=> First == noSlot.
type LevelEntry struct {
	AggrQty    Qty
	OrderCount int32
	First      int32
	Last       int32
}

// IsEmpty reports whether the level holds no liquidity.
func (e *LevelEntry) IsEmpty() bool {
	return e.OrderCount == 0 && !e.AggrQty.IsPos() && e.First == noSlot
}

// reset returns the entry to the empty state.
func (e *LevelEntry) reset(kind QtyKind) {
	e.AggrQty = ZeroQty(kind)
	e.OrderCount = 0
	e.First = noSlot
	e.Last = noSlot
}

// consistent checks the shallow empty/non-empty invariant. The order-chain
// fields are only meaningful when the orders log is enabled.
func (e *LevelEntry) consistent(withOrders bool) bool {
	zeroQty := !e.AggrQty.IsPos()
	zeroCnt := e.OrderCount == 0
	if zeroQty != zeroCnt {
		return false
	}
	if e.AggrQty.IsNeg() || e.OrderCount < 0 {
		return false
	}
	if withOrders {
		if zeroCnt != (e.First == noSlot) {
			return false
		}
		if (e.First == noSlot) != (e.Last == noSlot) {
			return false
		}
	}
	return true
}

// OrderSlot is one individual order record (market-by-order tracking).
// Slots live in a flat pre-allocated array indexed by the externally
// assigned numeric order ID; an inactive slot is "empty" and is reused
// when the same ID recurs. Prev/Next link orders resting at the same
// price level, in arrival order.
type OrderSlot struct {
	Active bool
	ID     uint64
	IsBid  bool
	Px     Price
	Qty    Qty
	// ReqID links the order to the originating request in the order
	// management layer, when known. Zero means no link.
	ReqID int64
	Prev  int32
	Next  int32
	// levelKey is the price-step key of the owning level (see sideKey).
	levelKey int64
}

// reset empties the slot.
func (o *OrderSlot) reset() {
	*o = OrderSlot{Prev: noSlot, Next: noSlot}
}
