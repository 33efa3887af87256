package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velostrade/bookcore/pkg/core"
	"github.com/velostrade/bookcore/pkg/engine"
	"github.com/velostrade/bookcore/pkg/logging"
	"github.com/velostrade/bookcore/pkg/messaging"
	"github.com/velostrade/bookcore/pkg/messaging/kafka"
	"github.com/velostrade/bookcore/pkg/testutil"
)

func feedUpdate(instr, side, action string, px float64, qty string, rptSeq int64) *messaging.FeedUpdate {
	return &messaging.FeedUpdate{
		Instrument: instr,
		Side:       side,
		Action:     action,
		Px:         px,
		Qty:        qty,
		RptSeq:     rptSeq,
	}
}

// TestKafkaFeedRoundTrip publishes feed updates to a Kafka topic, consumes
// them through the feed consumer and checks they land in the book.
func TestKafkaFeedRoundTrip(t *testing.T) {
	testutil.SkipIfKafkaUnavailable(t, testutil.DefaultKafkaAddr)

	instr := fmt.Sprintf("KAFKA-TEST-%d", time.Now().UnixNano())
	topic := fmt.Sprintf("bookcore-feed-test-%d", time.Now().UnixNano())
	group := topic + "-group"
	logger := logging.New(logging.Config{Level: "error"})

	// Produce the feed before starting the consumer
	writer := &segkafka.Writer{
		Addr:                   segkafka.TCP(testutil.DefaultKafkaAddr),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
	}
	updates := []*messaging.FeedUpdate{
		feedUpdate(instr, "bid", "new", 99.99, "10", 1),
		feedUpdate(instr, "ask", "new", 100.01, "5", 2),
		feedUpdate(instr, "bid", "change", 99.99, "15", 3),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, upd := range updates {
		data, err := json.Marshal(upd)
		require.NoError(t, err)
		require.NoError(t, writer.WriteMessages(ctx, segkafka.Message{Key: []byte(instr), Value: data}))
	}
	require.NoError(t, writer.Close())

	mgr := engine.NewManager(logger, nil, nil)
	defer mgr.Close()
	_, err := mgr.CreateBook(instr, core.Options{
		QtyKind:     core.QtyContracts,
		WithRptSeqs: true,
		NumLevels:   101,
		PxStep:      0.01,
	})
	require.NoError(t, err)

	consumer := kafka.NewFeedConsumer(testutil.DefaultKafkaAddr, topic, group, logger)
	defer consumer.Close()

	consumed := make(chan struct{})
	seen := 0
	go func() {
		_ = consumer.Run(ctx, func(upd *messaging.FeedUpdate) error {
			if _, err := mgr.ApplySync(upd); err != nil {
				return err
			}
			seen++
			if seen == len(updates) {
				close(consumed)
			}
			return nil
		})
	}()

	select {
	case <-consumed:
	case <-ctx.Done():
		t.Fatal("timed out waiting for feed updates")
	}

	err = mgr.WithBook(instr, func(b *core.OrderBook) error {
		assert.True(t, b.BestBidPx().Eq(99.99))
		assert.Equal(t, "15.000", b.BestBidQty().String())
		assert.True(t, b.BestAskPx().Eq(100.01))
		assert.Equal(t, "5.000", b.BestAskQty().String())
		assert.Equal(t, int64(3), b.LastRptSeq())
		return nil
	})
	require.NoError(t, err)
}

// TestKafkaEventSender publishes a book event and reads it back.
func TestKafkaEventSender(t *testing.T) {
	testutil.SkipIfKafkaUnavailable(t, testutil.DefaultKafkaAddr)

	topic := fmt.Sprintf("bookcore-events-test-%d", time.Now().UnixNano())

	sender, err := kafka.NewKafkaEventSender(testutil.DefaultKafkaAddr, topic)
	require.NoError(t, err)

	ev := &messaging.BookEvent{
		Instrument: "KAFKA-EV",
		Side:       "bid",
		Effect:     "L1Px",
		BestBidPx:  "99.99",
		BestBidQty: "10.000",
		RptSeq:     1,
		TsNanos:    time.Now().UnixNano(),
	}
	require.NoError(t, sender.SendBookEvent(ev))
	require.NoError(t, sender.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reader := segkafka.NewReader(segkafka.ReaderConfig{
		Brokers: []string{testutil.DefaultKafkaAddr},
		Topic:   topic,
		MaxWait: 250 * time.Millisecond,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	var got messaging.BookEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev.Instrument, got.Instrument)
	assert.Equal(t, ev.BestBidPx, got.BestBidPx)
	assert.Equal(t, string(msg.Key), ev.Instrument)
}
