package core

// Side identifies the half of the book an update or query refers to.
type Side int8

const (
	// SideUndefined is the zero value, used where the side is unknown or
	// not set (e.g. trade aggressor). Keeping it at zero means an unset
	// Side never silently reads as Bid.
	SideUndefined Side = iota
	// Bid is the buy side of the book.
	Bid
	// Ask is the sell side of the book.
	Ask
)

// String implements fmt.Stringer.
func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "undefined"
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	switch s {
	case Bid:
		return Ask
	case Ask:
		return Bid
	default:
		return SideUndefined
	}
}

// Valid reports whether s is Bid or Ask.
func (s Side) Valid() bool {
	return s == Bid || s == Ask
}

// Action describes what an inbound feed update does to a price level or
// order. ActionUndefined means "notionally one order per level, infer the
// action from the quantity transition".
type Action uint8

const (
	ActionUndefined Action = iota
	ActionNew
	ActionChange
	ActionDelete
)

// String implements fmt.Stringer.
func (a Action) String() string {
	switch a {
	case ActionNew:
		return "new"
	case ActionChange:
		return "change"
	case ActionDelete:
		return "delete"
	default:
		return "undefined"
	}
}

// UpdateEffect classifies how strong the observable change of an applied
// update was. Values are ordered by ascending strength; subscribers register
// a minimum effect and are only notified at or above it. EffectError is
// always reported regardless of the subscriber threshold.
type UpdateEffect uint8

const (
	EffectNone UpdateEffect = iota
	EffectL2
	EffectL1Qty
	EffectL1Px
	EffectError
)

// String implements fmt.Stringer.
func (e UpdateEffect) String() string {
	switch e {
	case EffectNone:
		return "NONE"
	case EffectL2:
		return "L2"
	case EffectL1Qty:
		return "L1Qty"
	case EffectL1Px:
		return "L1Px"
	case EffectError:
		return "ERROR"
	default:
		return "INVALID"
	}
}

// AtLeast reports whether e is at least as strong as min.
func (e UpdateEffect) AtLeast(min UpdateEffect) bool {
	return e >= min
}

// UpdatedSides reports which sides of the book an operation touched.
// Values are OR-able.
type UpdatedSides uint8

const (
	UpdatedNone UpdatedSides = 0
	UpdatedBid  UpdatedSides = 1 << 0
	UpdatedAsk  UpdatedSides = 1 << 1
	UpdatedBoth UpdatedSides = UpdatedBid | UpdatedAsk
)

// Has reports whether u includes all sides in mask.
func (u UpdatedSides) Has(mask UpdatedSides) bool {
	return u&mask == mask
}

// String implements fmt.Stringer.
func (u UpdatedSides) String() string {
	switch u {
	case UpdatedBid:
		return "bid"
	case UpdatedAsk:
		return "ask"
	case UpdatedBoth:
		return "both"
	default:
		return "none"
	}
}
