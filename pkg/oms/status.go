package oms

// Status is the lifecycle state of a request. Whether a status is
// terminal, and how statuses rank against each other, is defined by the
// explicit tables below; never compare raw Status values for ordering.
type Status uint8

const (
	StatusIndicated Status = iota
	StatusNew
	StatusAcked
	StatusConfirmed
	StatusPartFilled
	StatusCancelled
	StatusReplaced
	StatusFailed
	StatusFilled

	numStatuses
)

// statusRank orders statuses by lifecycle progress. Kept as an explicit
// table so that declaration order carries no semantics.
var statusRank = [numStatuses]int{
	StatusIndicated:  0,
	StatusNew:        1,
	StatusAcked:      2,
	StatusConfirmed:  3,
	StatusPartFilled: 4,
	StatusCancelled:  5,
	StatusReplaced:   6,
	StatusFailed:     7,
	StatusFilled:     8,
}

// statusTerminal marks the statuses after which a request never changes.
var statusTerminal = [numStatuses]bool{
	StatusCancelled: true,
	StatusReplaced:  true,
	StatusFailed:    true,
	StatusFilled:    true,
}

// Rank returns the lifecycle rank of s (higher = further along).
func (s Status) Rank() int {
	if s >= numStatuses {
		return -1
	}
	return statusRank[s]
}

// IsTerminal reports whether s is a terminal status.
func (s Status) IsTerminal() bool {
	return s < numStatuses && statusTerminal[s]
}

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusIndicated:
		return "Indicated"
	case StatusNew:
		return "New"
	case StatusAcked:
		return "Acked"
	case StatusConfirmed:
		return "Confirmed"
	case StatusPartFilled:
		return "PartFilled"
	case StatusCancelled:
		return "Cancelled"
	case StatusReplaced:
		return "Replaced"
	case StatusFailed:
		return "Failed"
	case StatusFilled:
		return "Filled"
	default:
		return "INVALID"
	}
}

// Kind identifies what a request does. Values are bit flags so callers
// can match against kind sets.
type Kind uint8

const (
	KindNew Kind = 1 << iota
	KindModify
	KindCancel
	KindModLegCancel
	KindModLegNew
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindNew:
		return "New"
	case KindModify:
		return "Modify"
	case KindCancel:
		return "Cancel"
	case KindModLegCancel:
		return "ModLegCancel"
	case KindModLegNew:
		return "ModLegNew"
	default:
		return "INVALID"
	}
}

// isCancelKind reports whether k removes liquidity without carrying a
// quantity of its own. Cancel-kind requests are skipped by the chain
// walks and must carry the special-zero quantity.
func isCancelKind(k Kind) bool {
	return k == KindCancel || k == KindModLegCancel
}

// isNewKind reports whether k opens a fresh request chain position
// (OrigID must be zero).
func isNewKind(k Kind) bool {
	return k == KindNew || k == KindModLegNew
}

// OrderType is the venue order type of an AOS.
type OrderType uint8

const (
	OrderLimit OrderType = iota
	OrderMarket
	OrderStop
	OrderPegged
)

// String implements fmt.Stringer.
func (t OrderType) String() string {
	switch t {
	case OrderLimit:
		return "Limit"
	case OrderMarket:
		return "Market"
	case OrderStop:
		return "Stop"
	case OrderPegged:
		return "Pegged"
	default:
		return "INVALID"
	}
}

// TimeInForce is the lifetime constraint of an AOS.
type TimeInForce uint8

const (
	TIFDay TimeInForce = iota
	TIFGoodTillCancel
	TIFGoodTillDate
	TIFImmediateOrCancel
	TIFFillOrKill
)

// String implements fmt.Stringer.
func (t TimeInForce) String() string {
	switch t {
	case TIFDay:
		return "Day"
	case TIFGoodTillCancel:
		return "GTC"
	case TIFGoodTillDate:
		return "GTD"
	case TIFImmediateOrCancel:
		return "IOC"
	case TIFFillOrKill:
		return "FOK"
	default:
		return "INVALID"
	}
}
