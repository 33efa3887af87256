package core

import (
	"math"
	"strconv"
)

// PxTolerance is the absolute tolerance used by all price comparisons.
// Prices are doubles carried through feed arithmetic; never compare the
// floating bits directly outside this file.
const PxTolerance = 1e-13

// Price is a price scalar. The zero of the domain is a real price; "no
// price" is NaN, produced by EmptyPrice and detected by IsFinite.
type Price float64

// EmptyPrice returns the "no price" sentinel.
func EmptyPrice() Price {
	return Price(math.NaN())
}

// IsFinite reports whether p carries an actual price.
func (p Price) IsFinite() bool {
	return !math.IsNaN(float64(p)) && !math.IsInf(float64(p), 0)
}

// IsZero reports whether p is zero within tolerance.
func (p Price) IsZero() bool {
	return p.IsFinite() && math.Abs(float64(p)) <= PxTolerance
}

// IsPos reports whether p is strictly positive within tolerance.
func (p Price) IsPos() bool {
	return p.IsFinite() && float64(p) > PxTolerance
}

// IsNeg reports whether p is strictly negative within tolerance.
func (p Price) IsNeg() bool {
	return p.IsFinite() && float64(p) < -PxTolerance
}

// Eq reports whether p and q are equal within tolerance. An empty price is
// not equal to anything, including another empty price.
func (p Price) Eq(q Price) bool {
	return p.IsFinite() && q.IsFinite() && math.Abs(float64(p-q)) <= PxTolerance
}

// Less reports whether p is strictly below q within tolerance. Empty
// prices compare as "absent": the result is false.
func (p Price) Less(q Price) bool {
	return p.IsFinite() && q.IsFinite() && float64(p) < float64(q)-PxTolerance
}

// Greater reports whether p is strictly above q within tolerance.
func (p Price) Greater(q Price) bool {
	return q.Less(p)
}

// Float64 returns the raw value.
func (p Price) Float64() float64 {
	return float64(p)
}

// String implements fmt.Stringer.
func (p Price) String() string {
	if !p.IsFinite() {
		return "empty"
	}
	return strconv.FormatFloat(float64(p), 'f', -1, 64)
}

// Better reports whether p is a better price than q from the point of view
// of the given side (higher bids and lower asks are better).
func (p Price) Better(q Price, side Side) bool {
	if side == Bid {
		return p.Greater(q)
	}
	return p.Less(q)
}

// StepMultiple returns the integer n such that diff == n*step within
// tolerance. In relaxed mode a non-exact diff is rounded to the nearest
// multiple; in strict mode it fails with ErrPriceOffStep.
func StepMultiple(diff, step float64, relaxed bool) (int, error) {
	if step <= 0 {
		return 0, ErrInvalidArgument
	}
	n := math.Round(diff / step)
	if !relaxed && math.Abs(diff-n*step) > PxTolerance {
		return 0, ErrPriceOffStep
	}
	return int(n), nil
}

// ArithmMidPx returns the arithmetic midpoint of two prices, or empty if
// either is absent.
func ArithmMidPx(a, b Price) Price {
	if !a.IsFinite() || !b.IsFinite() {
		return EmptyPrice()
	}
	return (a + b) / 2
}
