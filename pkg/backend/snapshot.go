package backend

import (
	"context"
	"errors"
	"time"

	"github.com/velostrade/bookcore/pkg/core"
)

// ErrSnapshotNotFound is returned when no snapshot exists for an instrument.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Level is one aggregated price level of a stored ladder. Quantities
// travel as decimal strings to survive JSON round-trips exactly.
type Level struct {
	Px     float64 `json:"px"`
	Qty    string  `json:"qty"`
	Orders int32   `json:"orders"`
}

// Snapshot is a persistable aggregate view of one book. Order-level
// (MBO) state is not persisted: a restored book starts from the
// aggregate ladder and re-learns orders from the live feed.
type Snapshot struct {
	Instrument string    `json:"instrument"`
	RptSeq     int64     `json:"rpt_seq"`
	SeqNum     int64     `json:"seq_num"`
	TakenAt    time.Time `json:"taken_at"`
	Bids       []Level   `json:"bids"`
	Asks       []Level   `json:"asks"`
}

// SnapshotStore persists book snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, instrument string) (*Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, instrument string) error
}

// TakeSnapshot captures up to depth levels per side (0 = all).
func TakeSnapshot(b *core.OrderBook, depth int) *Snapshot {
	snap := &Snapshot{
		Instrument: b.Instrument(),
		RptSeq:     b.LastRptSeq(),
		SeqNum:     b.LastSeqNum(),
		TakenAt:    time.Now(),
	}
	collect := func(side core.Side) []Level {
		var out []Level
		b.Traverse(side, depth, func(px core.Price, e *core.LevelEntry) bool {
			out = append(out, Level{
				Px:     px.Float64(),
				Qty:    e.AggrQty.String(),
				Orders: e.OrderCount,
			})
			return true
		})
		return out
	}
	snap.Bids = collect(core.Bid)
	snap.Asks = collect(core.Ask)
	return snap
}

// RestoreSnapshot replays the stored ladder into the book in init mode
// and marks it initialised. The book should be freshly constructed or
// invalidated.
func RestoreSnapshot(b *core.OrderBook, snap *Snapshot) error {
	apply := func(side core.Side, levels []Level) error {
		for _, l := range levels {
			qty, err := core.QtyFromString(b.QtyKind(), l.Qty)
			if err != nil {
				return err
			}
			if _, err := b.UpdateInit(side, core.ActionNew, core.Price(l.Px), qty, snap.RptSeq, snap.SeqNum, 0); err != nil {
				return err
			}
		}
		return nil
	}
	if err := apply(core.Bid, snap.Bids); err != nil {
		return err
	}
	if err := apply(core.Ask, snap.Asks); err != nil {
		return err
	}
	b.SetInitialised()
	return nil
}
