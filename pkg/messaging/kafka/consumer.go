package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/velostrade/bookcore/pkg/messaging"
)

// FeedConsumer reads market-data updates off the feed topic and hands
// them to a handler. Decode failures are logged and skipped: a poisoned
// message must not stall the feed.
type FeedConsumer struct {
	reader *kafka.Reader
	log    zerolog.Logger
}

// NewFeedConsumer creates a consumer for the given broker/topic/group.
func NewFeedConsumer(brokerAddr, topic, groupID string, logger zerolog.Logger) *FeedConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  250 * time.Millisecond,
	})
	return &FeedConsumer{
		reader: reader,
		log:    logger.With().Str("topic", topic).Logger(),
	}
}

// Run consumes until the context is cancelled, invoking handle for every
// decoded update. Handler errors are logged; consumption continues.
func (c *FeedConsumer) Run(ctx context.Context, handle func(*messaging.FeedUpdate) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		var upd messaging.FeedUpdate
		if err := json.Unmarshal(msg.Value, &upd); err != nil {
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("undecodable feed update skipped")
			continue
		}
		if err := handle(&upd); err != nil {
			c.log.Error().Err(err).Str("instr", upd.Instrument).Msg("feed update rejected")
		}
	}
}

// Close closes the underlying reader.
func (c *FeedConsumer) Close() error {
	return c.reader.Close()
}
