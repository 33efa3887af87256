package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velostrade/bookcore/pkg/backend/memory"
	"github.com/velostrade/bookcore/pkg/core"
	"github.com/velostrade/bookcore/pkg/messaging"
)

func testOptions() core.Options {
	return core.Options{
		QtyKind:     core.QtyContracts,
		PxStep:      0.01,
		NumLevels:   101,
		WithRptSeqs: true,
	}
}

func feedUpdate(side, action string, px float64, qty string, rptSeq int64) *messaging.FeedUpdate {
	return &messaging.FeedUpdate{
		Instrument: "BTC-USD",
		Side:       side,
		Action:     action,
		Px:         px,
		Qty:        qty,
		RptSeq:     rptSeq,
	}
}

func TestCreateBook(t *testing.T) {
	m := NewManager(zerolog.Nop(), nil, nil)
	defer m.Close()

	info, err := m.CreateBook("BTC-USD", testOptions())
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", info.Instrument)
	assert.False(t, info.Sparse)

	_, err = m.CreateBook("BTC-USD", testOptions())
	assert.ErrorIs(t, err, ErrBookExists)

	assert.Len(t, m.ListBooks(), 1)
}

func TestApplyUnknownInstrument(t *testing.T) {
	m := NewManager(zerolog.Nop(), nil, nil)
	defer m.Close()

	err := m.Apply(feedUpdate("bid", "new", 99.99, "10", 1))
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestApplySync(t *testing.T) {
	m := NewManager(zerolog.Nop(), nil, nil)
	defer m.Close()
	_, err := m.CreateBook("BTC-USD", testOptions())
	require.NoError(t, err)

	eff, err := m.ApplySync(feedUpdate("bid", "new", 99.99, "10", 1))
	require.NoError(t, err)
	assert.Equal(t, core.EffectL1Px, eff)

	eff, err = m.ApplySync(feedUpdate("ask", "new", 100.01, "5", 2))
	require.NoError(t, err)
	assert.Equal(t, core.EffectL1Px, eff)

	eff, err = m.ApplySync(feedUpdate("bid", "new", 99.98, "20", 3))
	require.NoError(t, err)
	assert.Equal(t, core.EffectL2, eff)

	err = m.WithBook("BTC-USD", func(b *core.OrderBook) error {
		assert.True(t, b.BestBidPx().Eq(99.99))
		assert.True(t, b.BestAskPx().Eq(100.01))
		assert.Equal(t, 2, b.Depth(core.Bid))
		return nil
	})
	require.NoError(t, err)
}

func TestApplyDecodeErrors(t *testing.T) {
	m := NewManager(zerolog.Nop(), nil, nil)
	defer m.Close()
	_, err := m.CreateBook("BTC-USD", testOptions())
	require.NoError(t, err)

	err = m.Apply(feedUpdate("sideways", "new", 99.99, "10", 1))
	assert.ErrorIs(t, err, core.ErrInvalidSide)

	err = m.Apply(feedUpdate("bid", "teleport", 99.99, "10", 1))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	err = m.Apply(feedUpdate("bid", "new", 99.99, "ten", 1))
	assert.Error(t, err)
}

func TestPublishThresholds(t *testing.T) {
	sender := messaging.NewMockEventSender()
	m := NewManager(zerolog.Nop(), sender, nil)
	_, err := m.CreateBook("BTC-USD", testOptions())
	require.NoError(t, err)
	require.NoError(t, m.Subscribe("BTC-USD", "ticker", core.EffectL1Px))

	_, err = m.ApplySync(feedUpdate("bid", "new", 99.99, "10", 1))
	require.NoError(t, err)
	// An L2 change clears no threshold
	_, err = m.ApplySync(feedUpdate("bid", "new", 99.98, "20", 2))
	require.NoError(t, err)
	// A best-quantity change does not either
	_, err = m.ApplySync(feedUpdate("bid", "change", 99.99, "15", 3))
	require.NoError(t, err)
	// A new best price does
	_, err = m.ApplySync(feedUpdate("bid", "new", 100.00, "5", 4))
	require.NoError(t, err)

	events := sender.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "L1Px", events[0].Effect)
	assert.Equal(t, "99.99", events[0].BestBidPx)
	assert.Equal(t, "100", events[1].BestBidPx)
	assert.Equal(t, int64(4), events[1].RptSeq)

	require.NoError(t, m.Close())
	assert.True(t, sender.Closed())
}

func TestSubscribeUnknownInstrument(t *testing.T) {
	m := NewManager(zerolog.Nop(), nil, nil)
	defer m.Close()
	err := m.Subscribe("NOPE", "ticker", core.EffectL2)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()

	m := NewManager(zerolog.Nop(), nil, store)
	_, err := m.CreateBook("BTC-USD", testOptions())
	require.NoError(t, err)
	_, err = m.ApplySync(feedUpdate("bid", "new", 99.99, "10", 1))
	require.NoError(t, err)
	_, err = m.ApplySync(feedUpdate("ask", "new", 100.01, "5", 2))
	require.NoError(t, err)
	require.NoError(t, m.SaveSnapshot(ctx, "BTC-USD", 0))
	require.NoError(t, m.Close())

	m2 := NewManager(zerolog.Nop(), nil, store)
	defer m2.Close()
	_, err = m2.CreateBook("BTC-USD", testOptions())
	require.NoError(t, err)
	require.NoError(t, m2.RestoreSnapshot(ctx, "BTC-USD"))

	err = m2.WithBook("BTC-USD", func(b *core.OrderBook) error {
		assert.True(t, b.IsReady())
		assert.True(t, b.BestBidPx().Eq(99.99))
		assert.True(t, b.BestAskPx().Eq(100.01))
		assert.Equal(t, int64(2), b.LastRptSeq())
		return nil
	})
	require.NoError(t, err)
}

func TestRestoreWithoutStore(t *testing.T) {
	m := NewManager(zerolog.Nop(), nil, nil)
	defer m.Close()
	_, err := m.CreateBook("BTC-USD", testOptions())
	require.NoError(t, err)

	err = m.RestoreSnapshot(context.Background(), "BTC-USD")
	assert.Error(t, err)
}

func TestClosedManager(t *testing.T) {
	m := NewManager(zerolog.Nop(), nil, nil)
	_, err := m.CreateBook("BTC-USD", testOptions())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	err = m.Apply(feedUpdate("bid", "new", 99.99, "10", 1))
	assert.ErrorIs(t, err, ErrManagerClosed)
	_, err = m.CreateBook("ETH-USD", testOptions())
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestParseSide(t *testing.T) {
	for _, s := range []string{"bid", "BUY", "b"} {
		side, err := parseSide(s)
		require.NoError(t, err)
		assert.Equal(t, core.Bid, side)
	}
	for _, s := range []string{"ask", "Sell", "s", "a"} {
		side, err := parseSide(s)
		require.NoError(t, err)
		assert.Equal(t, core.Ask, side)
	}
	_, err := parseSide("")
	assert.ErrorIs(t, err, core.ErrInvalidSide)
}

func TestParseAction(t *testing.T) {
	cases := map[string]core.Action{
		"new":       core.ActionNew,
		"add":       core.ActionNew,
		"change":    core.ActionChange,
		"Update":    core.ActionChange,
		"delete":    core.ActionDelete,
		"remove":    core.ActionDelete,
		"":          core.ActionUndefined,
		"undefined": core.ActionUndefined,
	}
	for in, want := range cases {
		got, err := parseAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseAction("merge")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
