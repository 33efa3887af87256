package core

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/btree"

	"github.com/velostrade/bookcore/pkg/otel"
)

// Options configures an OrderBook. The zero value is not usable: QtyKind,
// PxStep and (for dense books) NumLevels must be set.
type Options struct {
	// IsFullAmt marks the book's liquidity as full-amount (non-sweepable):
	// a demand band can only be satisfied by a single price level.
	IsFullAmt bool
	// IsSparse selects the ordered-map representation instead of the dense
	// fixed-span array.
	IsSparse bool
	// QtyKind is the unit of every quantity flowing through the book.
	QtyKind QtyKind
	// WithFracQtys permits fractional quantities.
	WithFracQtys bool
	// WithOrdersLog enables market-by-order tracking: updates carry an
	// order ID and per-order quantity deltas.
	WithOrdersLog bool
	// WithSeqNums enables checking of the global sequence number.
	WithSeqNums bool
	// WithRptSeqs enables checking of the per-instrument report sequence.
	WithRptSeqs bool
	// ContRptSeqs additionally requires report sequences to be continuous
	// (+1 steps), not merely increasing.
	ContRptSeqs bool
	// ChangeIsPartFill interprets a Change's quantity as the amount just
	// filled, subtracted from the order instead of applied as a signed
	// delta. Orders log only.
	ChangeIsPartFill bool
	// NewEncdAsChange accepts a Change on an unknown order ID as the
	// venue's encoding of a New order. Orders log only.
	NewEncdAsChange bool
	// Relaxed swallows stale sequences and off-span prices as no-ops
	// instead of failing, and rounds off-step prices to the nearest slot.
	Relaxed bool
	// NumLevels is the dense array span per side.
	NumLevels int
	// MaxDepth caps the tracked depth per side; deeper liquidity evicts
	// the worst level. Zero means unlimited.
	MaxDepth int
	// MaxOrders sizes the order-slot array (orders log only). Order IDs
	// must be below this bound.
	MaxOrders int
	// PxStep is the instrument's price step.
	PxStep float64
	// Logger receives diagnostics. Nil disables logging.
	Logger *zerolog.Logger
	// Metrics receives update telemetry. Nil disables it.
	Metrics *otel.BookMetrics
}

// Subscriber is a strategy registration: the holder is to be notified of
// updates whose effect is at least MinEffect. The book itself does not
// push; the owning connector dispatches based on the effect returned by
// Update.
type Subscriber struct {
	Name      string
	MinEffect UpdateEffect
}

// bookSide is one half of the book. Exactly one representation is active:
// dense (ents, bestIdx) or sparse (levels). Keys are price-step counts
// oriented so that a smaller key is always a better price.
type bookSide struct {
	isBid bool

	// dense
	ents    []LevelEntry
	bestIdx int // -1 when empty

	// sparse
	levels *btree.Map[int64, *LevelEntry]

	bestKey int64
	bestPx  Price
	depth   int
}

// OrderBook is an in-memory limit order book for a single instrument.
// It is strictly single-writer: the owning connector serializes all
// mutating calls onto one goroutine; no internal locking is performed.
type OrderBook struct {
	instr string
	o     Options
	log   zerolog.Logger
	met   *otel.BookMetrics

	bid bookSide
	ask bookSide

	// slots is the flat order arena, indexed by order ID (orders log only).
	slots []OrderSlot

	lastRptSeq  int64
	lastSeqNum  int64
	initialised bool
	// lastUpdatedBid tracks which side the most recent update touched;
	// CorrectBook discards liquidity from the staler side.
	lastUpdatedBid bool

	subs []Subscriber
}

// New constructs an order book for the given instrument.
func New(instr string, o Options) (*OrderBook, error) {
	if instr == "" {
		return nil, fmt.Errorf("%w: empty instrument", ErrInvalidArgument)
	}
	if o.PxStep <= 0 {
		return nil, fmt.Errorf("%w: non-positive price step", ErrInvalidArgument)
	}
	if !o.IsSparse && o.NumLevels <= 0 {
		return nil, fmt.Errorf("%w: dense book needs NumLevels", ErrInvalidArgument)
	}
	if o.WithOrdersLog && o.MaxOrders <= 0 {
		return nil, fmt.Errorf("%w: orders log needs MaxOrders", ErrInvalidArgument)
	}
	if o.ContRptSeqs && !o.WithRptSeqs {
		return nil, fmt.Errorf("%w: ContRptSeqs requires WithRptSeqs", ErrInvalidArgument)
	}
	if (o.ChangeIsPartFill || o.NewEncdAsChange) && !o.WithOrdersLog {
		return nil, fmt.Errorf("%w: feed encoding flags require WithOrdersLog", ErrInvalidArgument)
	}

	b := &OrderBook{
		instr: instr,
		o:     o,
		log:   zerolog.Nop(),
		met:   o.Metrics,
	}
	if o.Logger != nil {
		b.log = o.Logger.With().Str("instr", instr).Logger()
	}
	b.bid.isBid = true
	b.initSides()
	if o.WithOrdersLog {
		b.slots = make([]OrderSlot, o.MaxOrders)
		for i := range b.slots {
			b.slots[i].reset()
		}
	}
	return b, nil
}

func (b *OrderBook) initSides() {
	for _, s := range []*bookSide{&b.bid, &b.ask} {
		s.bestIdx = -1
		s.bestKey = 0
		s.bestPx = EmptyPrice()
		s.depth = 0
		if b.o.IsSparse {
			s.levels = &btree.Map[int64, *LevelEntry]{}
		} else {
			s.ents = make([]LevelEntry, b.o.NumLevels)
			for i := range s.ents {
				s.ents[i].reset(b.o.QtyKind)
			}
		}
	}
}

// Instrument returns the instrument this book tracks.
func (b *OrderBook) Instrument() string {
	return b.instr
}

// IsSparse reports the active representation.
func (b *OrderBook) IsSparse() bool {
	return b.o.IsSparse
}

// IsFullAmt reports whether the book's liquidity is full-amount.
func (b *OrderBook) IsFullAmt() bool {
	return b.o.IsFullAmt
}

// QtyKind returns the unit of the book's quantities.
func (b *OrderBook) QtyKind() QtyKind {
	return b.o.QtyKind
}

// PxStep returns the instrument's price step.
func (b *OrderBook) PxStep() float64 {
	return b.o.PxStep
}

// side returns the requested half of the book.
func (b *OrderBook) side(s Side) *bookSide {
	if s == Bid {
		return &b.bid
	}
	return &b.ask
}

// sideKey maps a price to the side's ordered key. Smaller keys are better
// prices on both sides.
func (s *bookSide) sideKey(px Price, step float64, relaxed bool) (int64, error) {
	n, err := StepMultiple(float64(px), step, relaxed)
	if err != nil {
		return 0, err
	}
	if s.isBid {
		return int64(-n), nil
	}
	return int64(n), nil
}

// keyPx is the inverse of sideKey.
func (s *bookSide) keyPx(key int64, step float64) Price {
	if s.isBid {
		return Price(float64(-key) * step)
	}
	return Price(float64(key) * step)
}

// empty reports whether the side holds no liquidity.
func (s *bookSide) empty() bool {
	return !s.bestPx.IsFinite()
}

// bestEntry returns the best level, or nil when the side is empty.
func (s *bookSide) bestEntry() *LevelEntry {
	if s.empty() {
		return nil
	}
	if s.levels != nil {
		_, e, ok := s.levels.Min()
		if !ok {
			return nil
		}
		return e
	}
	return &s.ents[s.bestIdx]
}

// entryAt returns the level for the given key, or nil when absent or
// outside the dense span.
func (s *bookSide) entryAt(key int64) *LevelEntry {
	if s.levels != nil {
		e, ok := s.levels.Get(key)
		if !ok {
			return nil
		}
		return e
	}
	if s.bestIdx < 0 {
		return nil
	}
	ix := s.bestIdx + int(key-s.bestKey)
	if ix < 0 || ix >= len(s.ents) {
		return nil
	}
	return &s.ents[ix]
}

// BestBidPx returns the best bid price, or empty when the side is empty.
func (b *OrderBook) BestBidPx() Price { return b.bid.bestPx }

// BestAskPx returns the best ask price, or empty when the side is empty.
func (b *OrderBook) BestAskPx() Price { return b.ask.bestPx }

// BestBidEntry returns the best bid level, or nil.
func (b *OrderBook) BestBidEntry() *LevelEntry { return b.bid.bestEntry() }

// BestAskEntry returns the best ask level, or nil.
func (b *OrderBook) BestAskEntry() *LevelEntry { return b.ask.bestEntry() }

// BestBidQty returns the aggregated quantity at the best bid, or a zero
// quantity when the side is empty.
func (b *OrderBook) BestBidQty() Qty {
	if e := b.bid.bestEntry(); e != nil {
		return e.AggrQty
	}
	return ZeroQty(b.o.QtyKind)
}

// BestAskQty returns the aggregated quantity at the best ask.
func (b *OrderBook) BestAskQty() Qty {
	if e := b.ask.bestEntry(); e != nil {
		return e.AggrQty
	}
	return ZeroQty(b.o.QtyKind)
}

// Depth returns the number of non-empty levels tracked on the given side.
func (b *OrderBook) Depth(s Side) int {
	return b.side(s).depth
}

// LastRptSeq returns the highest report sequence seen.
func (b *OrderBook) LastRptSeq() int64 { return b.lastRptSeq }

// LastSeqNum returns the highest global sequence number seen.
func (b *OrderBook) LastSeqNum() int64 { return b.lastSeqNum }

// SetInitialised marks the end of the dynamic-init (snapshot) phase. Set
// by the owning connector, not by the book.
func (b *OrderBook) SetInitialised() {
	b.initialised = true
}

// IsInitialised reports whether the init phase has completed.
func (b *OrderBook) IsInitialised() bool {
	return b.initialised
}

// IsReady reports whether the book is initialised and two-sided.
func (b *OrderBook) IsReady() bool {
	return b.initialised && !b.bid.empty() && !b.ask.empty()
}

// OrderByID returns the order slot for the given ID, or nil when the
// orders log is disabled, the ID is out of range or the slot is inactive.
func (b *OrderBook) OrderByID(id uint64) *OrderSlot {
	if b.slots == nil || id >= uint64(len(b.slots)) {
		return nil
	}
	s := &b.slots[id]
	if !s.Active {
		return nil
	}
	return s
}

// Subscribe registers a subscriber with a minimum effect level. A repeat
// registration for the same name updates the threshold.
func (b *OrderBook) Subscribe(name string, minEffect UpdateEffect) {
	for i := range b.subs {
		if b.subs[i].Name == name {
			b.subs[i].MinEffect = minEffect
			return
		}
	}
	b.subs = append(b.subs, Subscriber{Name: name, MinEffect: minEffect})
}

// Unsubscribe removes a subscriber. Unknown names are ignored.
func (b *OrderBook) Unsubscribe(name string) {
	for i := range b.subs {
		if b.subs[i].Name == name {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// SubscribersFor returns the subscribers to be notified for the given
// effect. EffectError is delivered to everyone regardless of threshold.
func (b *OrderBook) SubscribersFor(e UpdateEffect) []Subscriber {
	if e == EffectNone {
		return nil
	}
	out := make([]Subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if e == EffectError || e.AtLeast(s.MinEffect) {
			out = append(out, s)
		}
	}
	return out
}

// Clear empties both sides, keeping configuration, subscribers and the
// initialised flag, and records the given sequences.
func (b *OrderBook) Clear(rptSeq, seqNum int64) {
	b.clearSide(&b.bid)
	b.clearSide(&b.ask)
	if rptSeq > b.lastRptSeq {
		b.lastRptSeq = rptSeq
	}
	if seqNum > b.lastSeqNum {
		b.lastSeqNum = seqNum
	}
}

// Invalidate returns the book to its just-constructed state: both sides
// empty, sequences zeroed, initialised flag dropped. A fresh update
// sequence after Invalidate reproduces the same state as a new book.
func (b *OrderBook) Invalidate() {
	b.clearSide(&b.bid)
	b.clearSide(&b.ask)
	b.lastRptSeq = 0
	b.lastSeqNum = 0
	b.initialised = false
	b.lastUpdatedBid = false
}

func (b *OrderBook) clearSide(s *bookSide) {
	if s.levels != nil {
		s.levels.Scan(func(_ int64, e *LevelEntry) bool {
			b.resetOrders(e)
			return true
		})
		s.levels = &btree.Map[int64, *LevelEntry]{}
	} else {
		for i := range s.ents {
			b.resetOrders(&s.ents[i])
			s.ents[i].reset(b.o.QtyKind)
		}
	}
	s.bestIdx = -1
	s.bestKey = 0
	s.bestPx = EmptyPrice()
	s.depth = 0
}

// resetOrders detaches and empties every order slot chained at the level,
// then empties the level itself.
func (b *OrderBook) resetOrders(e *LevelEntry) {
	if b.slots != nil {
		for ix := e.First; ix != noSlot; {
			next := b.slots[ix].Next
			b.slots[ix].reset()
			ix = next
		}
	}
	e.reset(b.o.QtyKind)
}
