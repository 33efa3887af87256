package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/velostrade/bookcore/pkg/backend"
	"github.com/velostrade/bookcore/pkg/core"
	"github.com/velostrade/bookcore/pkg/messaging"
)

var (
	// ErrBookExists is returned when trying to create a book that already exists
	ErrBookExists = errors.New("book for this instrument already exists")

	// ErrBookNotFound is returned when trying to access a non-existent book
	ErrBookNotFound = errors.New("book not found")

	// ErrManagerClosed is returned when applying to a closed manager
	ErrManagerClosed = errors.New("manager closed")
)

// BookInfo contains metadata about a managed book.
type BookInfo struct {
	Instrument string
	Sparse     bool
	CreatedAt  time.Time
}

// bookHandle pairs a book with its single-writer loop. All mutations of
// the book funnel through ops; nothing else may touch it while the loop
// runs.
type bookHandle struct {
	book *core.OrderBook
	info *BookInfo
	ops  chan func()
	quit chan struct{}
	wg   sync.WaitGroup
}

// Manager owns the per-instrument books. Each book is mutated by exactly
// one goroutine (its apply loop), honouring the engine's single-writer
// design; the manager itself only guards the instrument map.
type Manager struct {
	mu     sync.RWMutex
	books  map[string]*bookHandle
	log    zerolog.Logger
	sender messaging.EventSender
	store  backend.SnapshotStore
	closed bool
}

// NewManager creates a manager. sender and store may be nil to disable
// event publishing and snapshot persistence.
func NewManager(logger zerolog.Logger, sender messaging.EventSender, store backend.SnapshotStore) *Manager {
	return &Manager{
		books:  make(map[string]*bookHandle),
		log:    logger,
		sender: sender,
		store:  store,
	}
}

// CreateBook constructs a book and starts its apply loop.
func (m *Manager) CreateBook(instr string, opts core.Options) (*BookInfo, error) {
	logger := m.log.With().Str("instr", instr).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if _, exists := m.books[instr]; exists {
		logger.Error().Msg("book already exists")
		return nil, ErrBookExists
	}

	if opts.Logger == nil {
		opts.Logger = &logger
	}
	book, err := core.New(instr, opts)
	if err != nil {
		return nil, err
	}

	h := &bookHandle{
		book: book,
		info: &BookInfo{
			Instrument: instr,
			Sparse:     opts.IsSparse,
			CreatedAt:  time.Now(),
		},
		ops:  make(chan func(), 1024),
		quit: make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	m.books[instr] = h

	logger.Info().Bool("sparse", opts.IsSparse).Msg("book created")
	return h.info, nil
}

func (h *bookHandle) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.quit:
			// Drain what was enqueued before shutdown.
			for {
				select {
				case op := <-h.ops:
					op()
				default:
					return
				}
			}
		case op := <-h.ops:
			op()
		}
	}
}

func (m *Manager) handle(instr string) (*bookHandle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	h, ok := m.books[instr]
	if !ok {
		return nil, ErrBookNotFound
	}
	return h, nil
}

// ListBooks returns metadata for every managed book.
func (m *Manager) ListBooks() []*BookInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*BookInfo, 0, len(m.books))
	for _, h := range m.books {
		out = append(out, h.info)
	}
	return out
}

// Apply enqueues a feed update onto the instrument's apply loop. The
// call does not wait for the update to be applied; apply-side failures
// are logged and surfaced through metrics, not returned here.
func (m *Manager) Apply(upd *messaging.FeedUpdate) error {
	h, err := m.handle(upd.Instrument)
	if err != nil {
		return err
	}
	side, action, qty, err := m.decode(h.book, upd)
	if err != nil {
		return err
	}
	u := *upd
	h.ops <- func() {
		m.applyOne(h, side, action, qty, &u)
	}
	return nil
}

// ApplySync applies a feed update and waits for the result. Used by
// tests and the load generator.
func (m *Manager) ApplySync(upd *messaging.FeedUpdate) (core.UpdateEffect, error) {
	h, err := m.handle(upd.Instrument)
	if err != nil {
		return core.EffectNone, err
	}
	side, action, qty, err := m.decode(h.book, upd)
	if err != nil {
		return core.EffectNone, err
	}
	type result struct {
		eff core.UpdateEffect
		err error
	}
	done := make(chan result, 1)
	u := *upd
	h.ops <- func() {
		eff, err := h.book.Update(side, action, core.Price(u.Px), qty, u.RptSeq, u.SeqNum, u.OrderID)
		if err == nil {
			m.publish(h, side, eff)
		}
		done <- result{eff, err}
	}
	r := <-done
	return r.eff, r.err
}

func (m *Manager) decode(book *core.OrderBook, upd *messaging.FeedUpdate) (core.Side, core.Action, core.Qty, error) {
	side, err := parseSide(upd.Side)
	if err != nil {
		return side, core.ActionUndefined, core.Qty{}, err
	}
	action, err := parseAction(upd.Action)
	if err != nil {
		return side, action, core.Qty{}, err
	}
	qty, err := core.QtyFromString(book.QtyKind(), upd.Qty)
	if err != nil {
		return side, action, core.Qty{}, err
	}
	return side, action, qty, nil
}

func (m *Manager) applyOne(h *bookHandle, side core.Side, action core.Action, qty core.Qty, upd *messaging.FeedUpdate) {
	eff, err := h.book.Update(side, action, core.Price(upd.Px), qty, upd.RptSeq, upd.SeqNum, upd.OrderID)
	if err != nil {
		m.log.Error().Err(err).
			Str("instr", upd.Instrument).
			Str("side", upd.Side).
			Int64("rpt_seq", upd.RptSeq).
			Msg("update rejected")
	}
	if !h.book.IsConsistent() {
		if touched := h.book.CorrectBook(); touched != core.UpdatedNone {
			m.log.Warn().Str("instr", upd.Instrument).Stringer("sides", touched).Msg("book corrected")
		}
	}
	m.publish(h, side, eff)
}

// publish sends a book event when the effect clears at least one
// subscriber's threshold.
func (m *Manager) publish(h *bookHandle, side core.Side, eff core.UpdateEffect) {
	if m.sender == nil || eff == core.EffectNone {
		return
	}
	if len(h.book.SubscribersFor(eff)) == 0 {
		return
	}
	b := h.book
	ev := &messaging.BookEvent{
		Instrument: b.Instrument(),
		Side:       side.String(),
		Effect:     eff.String(),
		BestBidPx:  b.BestBidPx().String(),
		BestBidQty: b.BestBidQty().String(),
		BestAskPx:  b.BestAskPx().String(),
		BestAskQty: b.BestAskQty().String(),
		RptSeq:     b.LastRptSeq(),
		SeqNum:     b.LastSeqNum(),
		TsNanos:    time.Now().UnixNano(),
	}
	if err := m.sender.SendBookEvent(ev); err != nil {
		m.log.Error().Err(err).Str("instr", b.Instrument()).Msg("event publish failed")
	}
}

// Subscribe registers a subscriber threshold on the instrument's book.
func (m *Manager) Subscribe(instr, name string, minEffect core.UpdateEffect) error {
	h, err := m.handle(instr)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	h.ops <- func() {
		h.book.Subscribe(name, minEffect)
		close(done)
	}
	<-done
	return nil
}

// WithBook runs fn inside the instrument's apply loop, giving it
// exclusive access to the book. Use for queries that must not race the
// feed.
func (m *Manager) WithBook(instr string, fn func(*core.OrderBook) error) error {
	h, err := m.handle(instr)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	h.ops <- func() {
		done <- fn(h.book)
	}
	return <-done
}

// SaveSnapshot captures and persists the instrument's ladder.
func (m *Manager) SaveSnapshot(ctx context.Context, instr string, depth int) error {
	if m.store == nil {
		return nil
	}
	var snap *backend.Snapshot
	if err := m.WithBook(instr, func(b *core.OrderBook) error {
		snap = backend.TakeSnapshot(b, depth)
		return nil
	}); err != nil {
		return err
	}
	return m.store.Save(ctx, snap)
}

// RestoreSnapshot loads the stored ladder into the instrument's book.
func (m *Manager) RestoreSnapshot(ctx context.Context, instr string) error {
	if m.store == nil {
		return backend.ErrSnapshotNotFound
	}
	snap, err := m.store.Load(ctx, instr)
	if err != nil {
		return err
	}
	return m.WithBook(instr, func(b *core.OrderBook) error {
		b.Invalidate()
		return backend.RestoreSnapshot(b, snap)
	})
}

// RunSnapshots persists every book each interval until ctx is cancelled.
func (m *Manager) RunSnapshots(ctx context.Context, interval time.Duration, depth int) {
	if m.store == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, info := range m.ListBooks() {
				if err := m.SaveSnapshot(ctx, info.Instrument, 0); err != nil {
					m.log.Error().Err(err).Str("instr", info.Instrument).Msg("snapshot failed")
				}
			}
		}
	}
}

// Close stops every apply loop and closes the event sender. The manager
// accepts no work afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	books := m.books
	m.mu.Unlock()

	for _, h := range books {
		close(h.quit)
		h.wg.Wait()
	}
	if m.sender != nil {
		return m.sender.Close()
	}
	return nil
}

func parseSide(s string) (core.Side, error) {
	switch strings.ToLower(s) {
	case "bid", "buy", "b":
		return core.Bid, nil
	case "ask", "sell", "s", "a":
		return core.Ask, nil
	default:
		return core.SideUndefined, fmt.Errorf("%w: side %q", core.ErrInvalidSide, s)
	}
}

func parseAction(s string) (core.Action, error) {
	switch strings.ToLower(s) {
	case "new", "add":
		return core.ActionNew, nil
	case "change", "update":
		return core.ActionChange, nil
	case "delete", "remove":
		return core.ActionDelete, nil
	case "", "undefined":
		return core.ActionUndefined, nil
	default:
		return core.ActionUndefined, fmt.Errorf("%w: action %q", core.ErrInvalidArgument, s)
	}
}
