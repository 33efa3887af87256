package oms

import "github.com/rs/zerolog"

const (
	slabShift = 10
	slabSize  = 1 << slabShift
	slabMask  = slabSize - 1
)

// noIx is the nil value of arena chain links.
const noIx int32 = -1

// Arena owns the AOS/Req/Trade records of one order-management connector.
// Records are slab-allocated, addressed by stable int32 indices and never
// individually freed: chains link by index, and the whole arena is
// reclaimed en masse at end-of-day via Reset. Slabs are recycled through
// pools across resets.
//
// Like the order book, an arena is single-writer: the owning connector
// serializes all calls.
type Arena struct {
	log zerolog.Logger

	aosSlabs [][]AOS
	reqSlabs [][]Req
	trdSlabs [][]Trade

	nAOS    int
	nReqs   int
	nTrades int

	aosPool *Pool[[]AOS]
	reqPool *Pool[[]Req]
	trdPool *Pool[[]Trade]
}

// NewArena creates an empty arena. A nil logger disables logging.
func NewArena(logger *zerolog.Logger) *Arena {
	a := &Arena{
		log:     zerolog.Nop(),
		aosPool: NewPool(func() []AOS { return make([]AOS, slabSize) }),
		reqPool: NewPool(func() []Req { return make([]Req, slabSize) }),
		trdPool: NewPool(func() []Trade { return make([]Trade, slabSize) }),
	}
	if logger != nil {
		a.log = *logger
	}
	return a
}

// NumAOS returns the number of live AOS records.
func (a *Arena) NumAOS() int { return a.nAOS }

// NumReqs returns the number of live request records.
func (a *Arena) NumReqs() int { return a.nReqs }

// NumTrades returns the number of live trade records.
func (a *Arena) NumTrades() int { return a.nTrades }

// Reset reclaims every record at once, returning the slabs to their
// pools. All previously handed-out pointers and indices become invalid.
func (a *Arena) Reset() {
	a.log.Info().
		Int("aos", a.nAOS).
		Int("reqs", a.nReqs).
		Int("trades", a.nTrades).
		Msg("arena reset")
	for _, s := range a.aosSlabs {
		a.aosPool.Put(s)
	}
	for _, s := range a.reqSlabs {
		a.reqPool.Put(s)
	}
	for _, s := range a.trdSlabs {
		a.trdPool.Put(s)
	}
	a.aosSlabs = nil
	a.reqSlabs = nil
	a.trdSlabs = nil
	a.nAOS = 0
	a.nReqs = 0
	a.nTrades = 0
}

func (a *Arena) allocAOS() *AOS {
	ix := a.nAOS
	if ix>>slabShift == len(a.aosSlabs) {
		a.aosSlabs = append(a.aosSlabs, a.aosPool.Get())
	}
	a.nAOS++
	p := &a.aosSlabs[ix>>slabShift][ix&slabMask]
	*p = AOS{}
	return p
}

func (a *Arena) allocReq() (*Req, int32) {
	ix := a.nReqs
	if ix>>slabShift == len(a.reqSlabs) {
		a.reqSlabs = append(a.reqSlabs, a.reqPool.Get())
	}
	a.nReqs++
	p := &a.reqSlabs[ix>>slabShift][ix&slabMask]
	*p = Req{}
	return p, int32(ix)
}

func (a *Arena) allocTrade() (*Trade, int32) {
	ix := a.nTrades
	if ix>>slabShift == len(a.trdSlabs) {
		a.trdSlabs = append(a.trdSlabs, a.trdPool.Get())
	}
	a.nTrades++
	p := &a.trdSlabs[ix>>slabShift][ix&slabMask]
	*p = Trade{}
	return p, int32(ix)
}

// req resolves a request index, nil for noIx or out-of-range values.
func (a *Arena) req(ix int32) *Req {
	if ix < 0 || int(ix) >= a.nReqs {
		return nil
	}
	return &a.reqSlabs[ix>>slabShift][ix&slabMask]
}

// trade resolves a trade index, nil for noIx or out-of-range values.
func (a *Arena) trade(ix int32) *Trade {
	if ix < 0 || int(ix) >= a.nTrades {
		return nil
	}
	return &a.trdSlabs[ix>>slabShift][ix&slabMask]
}
