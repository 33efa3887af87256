package core

import (
	"fmt"
	"math"
)

// MaxVWAPBands is the maximum number of demand bands per VWAP request.
const MaxVWAPBands = 10

// ParamsVWAP is a multi-band VWAP request and its results. Band sizes are
// sequential demands: band k is consumed from the liquidity left over
// after band k-1, not cumulative totals. Construct with NewParamsVWAP;
// the zero value has ManipRedCoeff == 0 which means "discount
// single-order levels entirely".
type ParamsVWAP struct {
	// NBands is the number of demand bands, 1..MaxVWAPBands.
	NBands int
	// BandSizes are the per-band demanded quantities.
	BandSizes [MaxVWAPBands]float64

	// ExclMktQty is the size of a known in-flight aggressive order,
	// consumed as extra demand ahead of band 0.
	ExclMktQty float64
	// ExclLimitPx/ExclLimitQty exclude a known resting own order at a
	// matching price level before accumulation.
	ExclLimitPx  Price
	ExclLimitQty float64
	// ManipRedCoeff scales the visible quantity of single-order levels to
	// discount suspected spoofing: 1 = no discount, 0 = full discount.
	ManipRedCoeff float64
	// ManipOnlyL1 restricts the discount to the best level.
	ManipOnlyL1 bool

	// VWAPs and WorstPxs are the per-band results. Bands the book cannot
	// satisfy are left empty (NaN); the caller distinguishes an
	// incomplete result by checking IsFinite.
	VWAPs    [MaxVWAPBands]Price
	WorstPxs [MaxVWAPBands]Price
}

// NewParamsVWAP builds a request over the given sequential band sizes
// with no exclusions and no manipulation discount.
func NewParamsVWAP(bandSizes ...float64) (*ParamsVWAP, error) {
	if len(bandSizes) == 0 || len(bandSizes) > MaxVWAPBands {
		return nil, fmt.Errorf("%w: %d bands", ErrInvalidArgument, len(bandSizes))
	}
	p := &ParamsVWAP{NBands: len(bandSizes), ManipRedCoeff: 1}
	copy(p.BandSizes[:], bandSizes)
	return p, nil
}

func (p *ParamsVWAP) validate(fullAmt bool) error {
	if p.NBands < 1 || p.NBands > MaxVWAPBands {
		return fmt.Errorf("%w: NBands=%d", ErrInvalidArgument, p.NBands)
	}
	if fullAmt && p.NBands != 1 {
		return fmt.Errorf("%w: full-amount book allows exactly 1 band", ErrInvalidArgument)
	}
	for i := 0; i < p.NBands; i++ {
		if p.BandSizes[i] <= 0 {
			return fmt.Errorf("%w: band %d size %v", ErrInvalidArgument, i, p.BandSizes[i])
		}
	}
	if p.ExclMktQty < 0 || p.ExclLimitQty < 0 {
		return fmt.Errorf("%w: negative exclusion qty", ErrInvalidArgument)
	}
	if p.ManipRedCoeff < 0 || p.ManipRedCoeff > 1 {
		return fmt.Errorf("%w: ManipRedCoeff=%v", ErrInvalidArgument, p.ManipRedCoeff)
	}
	return nil
}

// GetVWAP fills the request's result arrays from a single best-to-worst
// traversal of the given side. On a full-amount book a band is only
// satisfiable by one level covering the whole demand; on a sweepable book
// demand accumulates across consecutive levels. Band VWAPs and worst
// prices must move monotonically away from the best price; a violation
// reports ErrLogic (it indicates corrupted book state, never a caller
// mistake).
func (b *OrderBook) GetVWAP(side Side, p *ParamsVWAP) error {
	if !side.Valid() {
		return ErrInvalidSide
	}
	if p == nil {
		return fmt.Errorf("%w: nil params", ErrInvalidArgument)
	}
	if err := p.validate(b.o.IsFullAmt); err != nil {
		return err
	}
	for i := range p.VWAPs {
		p.VWAPs[i] = EmptyPrice()
		p.WorstPxs[i] = EmptyPrice()
	}

	if b.o.IsFullAmt {
		b.vwapFullAmt(side, p)
		return nil
	}
	b.vwapSweep(side, p)
	return b.checkBandMonotonicity(side, p)
}

// vwapFullAmt resolves the single band against the first level able to
// absorb the whole demand. Full-amount levels are all-or-nothing quotes,
// so the raw level size is compared against the demand; the limit-order
// and manipulation exclusions only apply to sweepable books.
func (b *OrderBook) vwapFullAmt(side Side, p *ParamsVWAP) {
	demand := p.BandSizes[0] + p.ExclMktQty
	b.Traverse(side, 0, func(px Price, e *LevelEntry) bool {
		if e.AggrQty.dec().Float64() >= demand {
			p.VWAPs[0] = px
			p.WorstPxs[0] = px
			return false
		}
		return true
	})
}

// vwapSweep accumulates price*qty across consecutive levels until each
// band's demand is met. Leftover volume at the level completing a band
// feeds the next band.
func (b *OrderBook) vwapSweep(side Side, p *ParamsVWAP) {
	k := 0
	rem := p.BandSizes[0] + p.ExclMktQty
	notional := 0.0
	first := true
	b.Traverse(side, 0, func(px Price, e *LevelEntry) bool {
		vol := b.visibleVol(px, e, first, p)
		first = false
		for vol > 0 && k < p.NBands {
			take := math.Min(vol, rem)
			notional += take * px.Float64()
			rem -= take
			vol -= take
			if rem > 0 {
				break
			}
			// ExclMktQty extends the demand swept for band 0 but the
			// band VWAP is still normalized by the band size alone.
			p.VWAPs[k] = Price(notional / p.BandSizes[k])
			p.WorstPxs[k] = px
			k++
			if k < p.NBands {
				rem = p.BandSizes[k]
				notional = 0
			}
		}
		return k < p.NBands
	})
}

// visibleVol is the level's quantity after exclusions. A level holding
// our own resting order has the order's size subtracted and is never
// discounted as manipulation: we know who placed it.
func (b *OrderBook) visibleVol(px Price, e *LevelEntry, isL1 bool, p *ParamsVWAP) float64 {
	vol := e.AggrQty.dec().Float64()
	own := p.ExclLimitQty > 0 && p.ExclLimitPx.IsFinite() && px.Eq(p.ExclLimitPx)
	if own {
		vol -= p.ExclLimitQty
		if vol < 0 {
			vol = 0
		}
	}
	if !own && p.ManipRedCoeff < 1 && e.OrderCount == 1 && (!p.ManipOnlyL1 || isL1) {
		vol *= p.ManipRedCoeff
	}
	return vol
}

// checkBandMonotonicity enforces the semi-monotonicity invariant on the
// filled bands: per-band VWAPs and worst prices move away from the best
// price as the band index grows.
func (b *OrderBook) checkBandMonotonicity(side Side, p *ParamsVWAP) error {
	for k := 1; k < p.NBands; k++ {
		if !p.VWAPs[k].IsFinite() {
			break
		}
		badVWAP := p.VWAPs[k].Better(p.VWAPs[k-1], side)
		badWrst := p.WorstPxs[k].Better(p.WorstPxs[k-1], side)
		if badVWAP || badWrst {
			return fmt.Errorf("%w: non-monotonic VWAP bands %d..%d on %s", ErrLogic, k-1, k, side)
		}
	}
	return nil
}

// GetVWAP1 returns the VWAP over a single demand band.
func (b *OrderBook) GetVWAP1(side Side, qty float64) (Price, error) {
	p, err := NewParamsVWAP(qty)
	if err != nil {
		return EmptyPrice(), err
	}
	if err := b.GetVWAP(side, p); err != nil {
		return EmptyPrice(), err
	}
	return p.VWAPs[0], nil
}

// GetDeepestPx returns the price of the deepest level touched when
// sweeping the given quantity, or empty when the side cannot satisfy it.
func (b *OrderBook) GetDeepestPx(side Side, qty float64) (Price, error) {
	p, err := NewParamsVWAP(qty)
	if err != nil {
		return EmptyPrice(), err
	}
	if err := b.GetVWAP(side, p); err != nil {
		return EmptyPrice(), err
	}
	return p.WorstPxs[0], nil
}
