package core

import (
	"errors"
	"math"
	"testing"
)

func newVWAPBook(t *testing.T, o Options) *OrderBook {
	t.Helper()
	b := newDenseBook(t, o)
	mustUpdate(t, b, Ask, ActionNew, 100.01, "10", 0)
	mustUpdate(t, b, Ask, ActionNew, 100.02, "20", 0)
	mustUpdate(t, b, Ask, ActionNew, 100.03, "30", 0)
	return b
}

func approxEq(a Price, want float64) bool {
	return a.IsFinite() && math.Abs(a.Float64()-want) < 1e-9
}

func TestVWAPSingleBand(t *testing.T) {
	b := newVWAPBook(t, Options{})

	// Fully inside the best level
	vwap, err := b.GetVWAP1(Ask, 10)
	if err != nil {
		t.Fatalf("GetVWAP1 failed: %v", err)
	}
	if !approxEq(vwap, 100.01) {
		t.Errorf("VWAP(10) = %v, want 100.01", vwap)
	}

	// Sweeping into the second level
	vwap, err = b.GetVWAP1(Ask, 15)
	if err != nil {
		t.Fatalf("GetVWAP1 failed: %v", err)
	}
	want := (10*100.01 + 5*100.02) / 15
	if !approxEq(vwap, want) {
		t.Errorf("VWAP(15) = %v, want %v", vwap, want)
	}

	worst, err := b.GetDeepestPx(Ask, 15)
	if err != nil {
		t.Fatalf("GetDeepestPx failed: %v", err)
	}
	if !worst.Eq(100.02) {
		t.Errorf("DeepestPx(15) = %v, want 100.02", worst)
	}
}

func TestVWAPMultiBand(t *testing.T) {
	b := newVWAPBook(t, Options{})

	// Bands are sequential: band 1 consumes the leftover after band 0
	p, err := NewParamsVWAP(15, 15)
	if err != nil {
		t.Fatalf("NewParamsVWAP failed: %v", err)
	}
	if err := b.GetVWAP(Ask, p); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}

	want0 := (10*100.01 + 5*100.02) / 15
	if !approxEq(p.VWAPs[0], want0) {
		t.Errorf("Band 0 VWAP = %v, want %v", p.VWAPs[0], want0)
	}
	if !p.WorstPxs[0].Eq(100.02) {
		t.Errorf("Band 0 worst = %v, want 100.02", p.WorstPxs[0])
	}
	// Band 1: the remaining 15 of level 2
	if !approxEq(p.VWAPs[1], 100.02) {
		t.Errorf("Band 1 VWAP = %v, want 100.02", p.VWAPs[1])
	}
	if !p.WorstPxs[1].Eq(100.02) {
		t.Errorf("Band 1 worst = %v, want 100.02", p.WorstPxs[1])
	}
}

func TestVWAPUnfilled(t *testing.T) {
	b := newVWAPBook(t, Options{})

	p, err := NewParamsVWAP(40, 40)
	if err != nil {
		t.Fatalf("NewParamsVWAP failed: %v", err)
	}
	if err := b.GetVWAP(Ask, p); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	if !p.VWAPs[0].IsFinite() {
		t.Error("Band 0 should fill (40 of 60 available)")
	}
	// The side cannot satisfy band 1: the result stays empty, no error
	if p.VWAPs[1].IsFinite() {
		t.Errorf("Band 1 should be empty, got %v", p.VWAPs[1])
	}

	// Empty side: everything stays empty
	p2, _ := NewParamsVWAP(10)
	if err := b.GetVWAP(Bid, p2); err != nil {
		t.Fatalf("GetVWAP on empty side failed: %v", err)
	}
	if p2.VWAPs[0].IsFinite() {
		t.Error("Empty side should produce an empty VWAP")
	}
}

func TestVWAPExclusions(t *testing.T) {
	b := newVWAPBook(t, Options{})

	// A known in-flight market order eats ahead of band 0: the sweep
	// covers 20 but the band VWAP is still normalized by its own size
	p, err := NewParamsVWAP(10)
	if err != nil {
		t.Fatalf("NewParamsVWAP failed: %v", err)
	}
	p.ExclMktQty = 10
	if err := b.GetVWAP(Ask, p); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	want := (10*100.01 + 10*100.02) / 10
	if !approxEq(p.VWAPs[0], want) {
		t.Errorf("VWAP with ExclMktQty = %v, want %v", p.VWAPs[0], want)
	}
	if !p.WorstPxs[0].Eq(100.02) {
		t.Errorf("Worst px with ExclMktQty = %v, want 100.02", p.WorstPxs[0])
	}

	// A resting own order shrinks its level's visible volume
	p2, err := NewParamsVWAP(10)
	if err != nil {
		t.Fatalf("NewParamsVWAP failed: %v", err)
	}
	p2.ExclLimitPx = 100.01
	p2.ExclLimitQty = 5
	if err := b.GetVWAP(Ask, p2); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	want = (5*100.01 + 5*100.02) / 10
	if !approxEq(p2.VWAPs[0], want) {
		t.Errorf("VWAP with own order excluded = %v, want %v", p2.VWAPs[0], want)
	}
}

func TestVWAPManipDiscount(t *testing.T) {
	// Aggregate levels count as a single order, so the discount applies
	b := newVWAPBook(t, Options{})

	p, err := NewParamsVWAP(10)
	if err != nil {
		t.Fatalf("NewParamsVWAP failed: %v", err)
	}
	p.ManipRedCoeff = 0.5
	p.ManipOnlyL1 = true
	if err := b.GetVWAP(Ask, p); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	// Only 5 of the best level is trusted; the rest comes from level 2
	want := (5*100.01 + 5*100.02) / 10
	if !approxEq(p.VWAPs[0], want) {
		t.Errorf("VWAP with manip discount = %v, want %v", p.VWAPs[0], want)
	}

	// Coefficient 1 leaves the book untouched
	p2, _ := NewParamsVWAP(10)
	if err := b.GetVWAP(Ask, p2); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	if !approxEq(p2.VWAPs[0], 100.01) {
		t.Errorf("Undiscounted VWAP = %v, want 100.01", p2.VWAPs[0])
	}

	// The level holding our own order is never discounted: the remainder
	// after excluding our size stays fully visible even at coefficient 0
	p3, _ := NewParamsVWAP(8)
	p3.ExclLimitPx = 100.01
	p3.ExclLimitQty = 2
	p3.ManipRedCoeff = 0
	p3.ManipOnlyL1 = true
	if err := b.GetVWAP(Ask, p3); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	if !approxEq(p3.VWAPs[0], 100.01) {
		t.Errorf("VWAP at own level = %v, want 100.01", p3.VWAPs[0])
	}
}

func TestVWAPFullAmount(t *testing.T) {
	b := newVWAPBook(t, Options{IsFullAmt: true})

	// Only a single level covering the whole demand satisfies the band
	p, err := NewParamsVWAP(15)
	if err != nil {
		t.Fatalf("NewParamsVWAP failed: %v", err)
	}
	if err := b.GetVWAP(Ask, p); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	if !p.VWAPs[0].Eq(100.02) || !p.WorstPxs[0].Eq(100.02) {
		t.Errorf("Full-amount VWAP = %v/%v, want 100.02", p.VWAPs[0], p.WorstPxs[0])
	}

	// More than one band is meaningless on a full-amount book
	p2, err := NewParamsVWAP(10, 10)
	if err != nil {
		t.Fatalf("NewParamsVWAP failed: %v", err)
	}
	if err := b.GetVWAP(Ask, p2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}

	// Demand beyond every level stays unfilled
	p3, _ := NewParamsVWAP(100)
	if err := b.GetVWAP(Ask, p3); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	if p3.VWAPs[0].IsFinite() {
		t.Errorf("Unsatisfiable full-amount demand should stay empty, got %v", p3.VWAPs[0])
	}

	// Full-amount quotes are all-or-nothing: the raw level size decides,
	// limit-order and manipulation exclusions do not shrink it
	p4, err := NewParamsVWAP(15)
	if err != nil {
		t.Fatalf("NewParamsVWAP failed: %v", err)
	}
	p4.ExclLimitPx = 100.02
	p4.ExclLimitQty = 10
	p4.ManipRedCoeff = 0
	if err := b.GetVWAP(Ask, p4); err != nil {
		t.Fatalf("GetVWAP failed: %v", err)
	}
	if !p4.VWAPs[0].Eq(100.02) {
		t.Errorf("Full-amount VWAP with exclusions = %v, want 100.02", p4.VWAPs[0])
	}
}

func TestVWAPValidation(t *testing.T) {
	b := newVWAPBook(t, Options{})

	if err := b.GetVWAP(Ask, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Nil params: expected ErrInvalidArgument, got %v", err)
	}
	if err := b.GetVWAP(SideUndefined, &ParamsVWAP{NBands: 1}); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("Bad side: expected ErrInvalidSide, got %v", err)
	}
	if _, err := NewParamsVWAP(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Zero bands: expected ErrInvalidArgument, got %v", err)
	}

	p, _ := NewParamsVWAP(10)
	p.ManipRedCoeff = 1.5
	if err := b.GetVWAP(Ask, p); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Bad coeff: expected ErrInvalidArgument, got %v", err)
	}
	p2, _ := NewParamsVWAP(10)
	p2.BandSizes[0] = -1
	if err := b.GetVWAP(Ask, p2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Negative band: expected ErrInvalidArgument, got %v", err)
	}
}
