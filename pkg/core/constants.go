package core

import "errors"

var (
	// ErrInvalidSide is returned when a side other than Bid or Ask is given.
	ErrInvalidSide = errors.New("invalid side")

	// ErrInvalidPrice is returned when a price is not finite where one is required.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidQuantity is returned when a quantity fails validation.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrQtyKindMismatch is returned when a quantity is read back or combined
	// with a different kind tag than it was constructed with.
	ErrQtyKindMismatch = errors.New("quantity kind mismatch")

	// ErrPriceOffStep is returned in strict mode when a price is not a
	// multiple of the configured price step within tolerance.
	ErrPriceOffStep = errors.New("price is not a multiple of the price step")

	// ErrSequenceInversion is returned in strict mode when an update carries
	// a report sequence not greater than the last applied one.
	ErrSequenceInversion = errors.New("report sequence inversion")

	// ErrSequenceGap is returned in strict continuous-sequencing mode when a
	// report sequence skips ahead by more than one.
	ErrSequenceGap = errors.New("report sequence gap")

	// ErrBookSpanExceeded is returned in strict mode when a dense update
	// falls outside the allocated level span.
	ErrBookSpanExceeded = errors.New("price outside allocated book span")

	// ErrMaxOrdersExceeded is returned when an order ID does not fit the
	// pre-allocated order slot array.
	ErrMaxOrdersExceeded = errors.New("order ID exceeds allocated slots")

	// ErrOrderNotFound is returned when a change/delete refers to an
	// inactive order slot.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrdersLogDisabled is returned when an order-level update is applied
	// to a book constructed without the orders log.
	ErrOrdersLogDisabled = errors.New("orders log not enabled")

	// ErrInvalidArgument is returned for malformed operation arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLogic indicates an internal invariant violation. It is never
	// swallowed: callers are expected to halt the affected component.
	ErrLogic = errors.New("internal logic error")
)
