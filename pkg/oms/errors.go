package oms

import "errors"

var (
	// ErrNilAOS is returned when a request is constructed without an AOS.
	ErrNilAOS = errors.New("nil AOS")

	// ErrBadReqID is returned for non-positive request IDs or IDs not
	// strictly greater than the referenced OrigID.
	ErrBadReqID = errors.New("bad request ID")

	// ErrBadOrigID is returned when OrigID is inconsistent with the
	// request kind: zero is required for New kinds and forbidden otherwise.
	ErrBadOrigID = errors.New("bad orig request ID")

	// ErrBadQty is returned when a request quantity violates its kind's
	// rules: positive for quantity-carrying kinds, the special zero for
	// cancel kinds.
	ErrBadQty = errors.New("bad request quantity")

	// ErrBadQtyShow is returned when qtyShow/qtyMin are negative or exceed
	// the request quantity.
	ErrBadQtyShow = errors.New("bad show/min quantity")

	// ErrBadTrade is returned for malformed trade records.
	ErrBadTrade = errors.New("bad trade")

	// ErrChainCorrupt indicates an inconsistent request chain: the
	// backward walk found no terminal fill/cancel and the first request is
	// not Failed. This is an upstream bookkeeping bug; callers should halt
	// the affected component rather than continue.
	ErrChainCorrupt = errors.New("request chain corrupt")

	// ErrNoQtyReq is returned when an AOS chain holds no quantity-carrying
	// request, which cannot happen for a correctly constructed order.
	ErrNoQtyReq = errors.New("no quantity-carrying request in chain")

	// ErrInvalidArgument is returned for other malformed constructor args.
	ErrInvalidArgument = errors.New("invalid argument")
)
