package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/velostrade/bookcore/pkg/messaging"
)

// KafkaEventSender implements messaging.EventSender using a kafka-go
// writer with JSON payloads keyed by instrument, so one instrument's
// events stay ordered within a partition.
type KafkaEventSender struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaEventSender creates a new Kafka event sender.
func NewKafkaEventSender(brokerAddr, topic string) (*KafkaEventSender, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,

		AllowAutoTopicCreation: true,
	}

	return &KafkaEventSender{
		writer: writer,
		topic:  topic,
	}, nil
}

// SendBookEvent publishes one book event.
func (k *KafkaEventSender) SendBookEvent(ev *messaging.BookEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal book event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.Instrument),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send event to Kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer.
func (k *KafkaEventSender) Close() error {
	return k.writer.Close()
}
