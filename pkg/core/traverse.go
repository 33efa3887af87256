package core

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// traverseSide walks the side's non-empty levels best to worst, passing
// the side key. Stops when visit returns false or maxLevels is reached
// (0 = unlimited).
func (b *OrderBook) traverseSide(s *bookSide, maxLevels int, visit func(key int64, e *LevelEntry) bool) {
	if s.empty() {
		return
	}
	n := 0
	if s.levels != nil {
		s.levels.Scan(func(k int64, e *LevelEntry) bool {
			if !visit(k, e) {
				return false
			}
			n++
			return maxLevels <= 0 || n < maxLevels
		})
		return
	}
	for i := s.bestIdx; i < len(s.ents); i++ {
		e := &s.ents[i]
		if e.IsEmpty() {
			continue
		}
		if !visit(s.bestKey+int64(i-s.bestIdx), e) {
			return
		}
		n++
		if maxLevels > 0 && n >= maxLevels {
			return
		}
	}
}

// Traverse walks up to maxLevels non-empty levels of the given side, best
// to worst, invoking visit with the level price and entry. Traversal
// stops early when visit returns false. maxLevels <= 0 walks the whole
// side. Empty dense slots are skipped, not visited.
func (b *OrderBook) Traverse(side Side, maxLevels int, visit func(px Price, e *LevelEntry) bool) {
	if !side.Valid() {
		return
	}
	s := b.side(side)
	b.traverseSide(s, maxLevels, func(key int64, e *LevelEntry) bool {
		return visit(s.keyPx(key, b.o.PxStep), e)
	})
}

// GetMidPx returns the mid price. With qty > 0 it is the arithmetic mid
// of the two sides' VWAPs over that quantity; otherwise the mid of the
// best prices. Empty when either side cannot satisfy the demand.
func (b *OrderBook) GetMidPx(qty float64) Price {
	if qty <= 0 {
		return ArithmMidPx(b.bid.bestPx, b.ask.bestPx)
	}
	bidVWAP, err := b.GetVWAP1(Bid, qty)
	if err != nil {
		return EmptyPrice()
	}
	askVWAP, err := b.GetVWAP1(Ask, qty)
	if err != nil {
		return EmptyPrice()
	}
	return ArithmMidPx(bidVWAP, askVWAP)
}

// Print writes a ladder dump of up to depth levels per side. Intended for
// diagnostics and the inspection CLI, not the hot path.
func (b *OrderBook) Print(w io.Writer, depth int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "book %s\trptSeq=%d\tseqNum=%d\tready=%v\n", b.instr, b.lastRptSeq, b.lastSeqNum, b.IsReady())
	fmt.Fprintln(tw, "ASK\tpx\tqty\torders")
	asks := make([][3]string, 0, depth)
	b.Traverse(Ask, depth, func(px Price, e *LevelEntry) bool {
		asks = append(asks, [3]string{px.String(), e.AggrQty.String(), fmt.Sprint(e.OrderCount)})
		return true
	})
	// Asks print worst-first so the ladder reads top-down.
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(tw, "\t%s\t%s\t%s\n", asks[i][0], asks[i][1], asks[i][2])
	}
	fmt.Fprintln(tw, "BID\tpx\tqty\torders")
	b.Traverse(Bid, depth, func(px Price, e *LevelEntry) bool {
		fmt.Fprintf(tw, "\t%s\t%s\t%d\n", px, e.AggrQty, e.OrderCount)
		return true
	})
	tw.Flush()
}
