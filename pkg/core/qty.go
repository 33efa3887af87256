package core

import (
	"fmt"

	"github.com/nikolaydubina/fpdecimal"
)

// QtyKind tags a quantity with its unit so that lot counts, contract
// counts and base/quote-currency amounts are never silently mixed.
// QtyUndefined acts as a wildcard in kind checks.
type QtyKind uint8

const (
	QtyUndefined QtyKind = iota
	QtyContracts
	QtyLots
	QtyA // base-currency amount
	QtyB // quote-currency amount
)

// String implements fmt.Stringer.
func (k QtyKind) String() string {
	switch k {
	case QtyContracts:
		return "contracts"
	case QtyLots:
		return "lots"
	case QtyA:
		return "qtyA"
	case QtyB:
		return "qtyB"
	default:
		return "undefined"
	}
}

// Qty is a kind-tagged fixed-point quantity. The zero value is an invalid
// quantity of undefined kind. A "special zero" is a distinguished zero
// used as the quantity of cancel requests.
type Qty struct {
	val      fpdecimal.Decimal
	kind     QtyKind
	valid    bool
	special0 bool
}

// NewQty constructs a valid quantity of the given kind.
func NewQty(kind QtyKind, v fpdecimal.Decimal) Qty {
	return Qty{val: v, kind: kind, valid: true}
}

// QtyFromFloat constructs a valid quantity from a float value.
func QtyFromFloat(kind QtyKind, f float64) Qty {
	return NewQty(kind, fpdecimal.FromFloat(f))
}

// QtyFromString parses a decimal string into a quantity.
func QtyFromString(kind QtyKind, s string) (Qty, error) {
	d, err := fpdecimal.FromString(s)
	if err != nil {
		return Qty{}, fmt.Errorf("%w: %q: %v", ErrInvalidQuantity, s, err)
	}
	return NewQty(kind, d), nil
}

// ZeroQty returns a valid zero quantity of the given kind.
func ZeroQty(kind QtyKind) Qty {
	return NewQty(kind, fpdecimal.Zero)
}

// Special0Qty returns the cancel-sentinel zero of the given kind.
func Special0Qty(kind QtyKind) Qty {
	q := ZeroQty(kind)
	q.special0 = true
	return q
}

// InvalidQty returns the invalid sentinel of the given kind.
func InvalidQty(kind QtyKind) Qty {
	return Qty{kind: kind}
}

// Kind returns the kind tag.
func (q Qty) Kind() QtyKind {
	return q.kind
}

// IsValid reports whether q carries a value.
func (q Qty) IsValid() bool {
	return q.valid
}

// IsSpecial0 reports whether q is the cancel-sentinel zero.
func (q Qty) IsSpecial0() bool {
	return q.valid && q.special0 && q.val.Equal(fpdecimal.Zero)
}

// IsZero reports whether q is a valid zero (special or not).
func (q Qty) IsZero() bool {
	return q.valid && q.val.Equal(fpdecimal.Zero)
}

// IsPos reports whether q is valid and strictly positive.
func (q Qty) IsPos() bool {
	return q.valid && q.val.GreaterThan(fpdecimal.Zero)
}

// IsNeg reports whether q is valid and strictly negative.
func (q Qty) IsNeg() bool {
	return q.valid && q.val.LessThan(fpdecimal.Zero)
}

// matchesKind reports whether q may be read back with the requested kind.
// QtyUndefined matches anything, on either end.
func (q Qty) matchesKind(kind QtyKind) bool {
	return kind == QtyUndefined || q.kind == QtyUndefined || q.kind == kind
}

// Decimal returns the fixed-point value, checking the requested kind
// against the stored tag.
func (q Qty) Decimal(kind QtyKind) (fpdecimal.Decimal, error) {
	if !q.valid {
		return fpdecimal.Zero, ErrInvalidQuantity
	}
	if !q.matchesKind(kind) {
		return fpdecimal.Zero, fmt.Errorf("%w: have %s, want %s", ErrQtyKindMismatch, q.kind, kind)
	}
	return q.val, nil
}

// Float returns the value as a float64, checking the requested kind.
func (q Qty) Float(kind QtyKind) (float64, error) {
	d, err := q.Decimal(kind)
	if err != nil {
		return 0, err
	}
	return d.Float64(), nil
}

// ConvertKind re-tags q with the given kind. Conversion is always explicit;
// there is no implicit path between kinds.
func (q Qty) ConvertKind(kind QtyKind) Qty {
	q.kind = kind
	return q
}

// Add returns q+o, failing on a kind mismatch. The result carries q's kind
// (or o's when q's is undefined) and is never special.
func (q Qty) Add(o Qty) (Qty, error) {
	if !q.valid || !o.valid {
		return Qty{}, ErrInvalidQuantity
	}
	if !q.matchesKind(o.kind) {
		return Qty{}, fmt.Errorf("%w: %s + %s", ErrQtyKindMismatch, q.kind, o.kind)
	}
	kind := q.kind
	if kind == QtyUndefined {
		kind = o.kind
	}
	return NewQty(kind, q.val.Add(o.val)), nil
}

// Sub returns q-o, failing on a kind mismatch.
func (q Qty) Sub(o Qty) (Qty, error) {
	if !q.valid || !o.valid {
		return Qty{}, ErrInvalidQuantity
	}
	if !q.matchesKind(o.kind) {
		return Qty{}, fmt.Errorf("%w: %s - %s", ErrQtyKindMismatch, q.kind, o.kind)
	}
	kind := q.kind
	if kind == QtyUndefined {
		kind = o.kind
	}
	return NewQty(kind, q.val.Sub(o.val)), nil
}

// Cmp compares q against o (-1, 0, +1), failing on a kind mismatch.
func (q Qty) Cmp(o Qty) (int, error) {
	if !q.valid || !o.valid {
		return 0, ErrInvalidQuantity
	}
	if !q.matchesKind(o.kind) {
		return 0, fmt.Errorf("%w: %s vs %s", ErrQtyKindMismatch, q.kind, o.kind)
	}
	switch {
	case q.val.LessThan(o.val):
		return -1, nil
	case q.val.GreaterThan(o.val):
		return 1, nil
	default:
		return 0, nil
	}
}

// String implements fmt.Stringer.
func (q Qty) String() string {
	if !q.valid {
		return "invalid"
	}
	if q.special0 {
		return "special0"
	}
	return q.val.String()
}

// dec is the unchecked accessor for book-internal arithmetic, where the
// kind has already been validated at the Update boundary.
func (q Qty) dec() fpdecimal.Decimal {
	return q.val
}

// addDec returns q with d added to its value, keeping the kind tag.
func (q Qty) addDec(d fpdecimal.Decimal) Qty {
	return NewQty(q.kind, q.val.Add(d))
}
