package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"github.com/velostrade/bookcore/pkg/messaging"
)

const maxRetry = 5

var (
	configMu   sync.RWMutex
	brokerList = "localhost:9092"
	topic      = "book-events"
)

// SetBrokerList overrides the Kafka broker address used by new senders.
func SetBrokerList(addr string) {
	configMu.Lock()
	defer configMu.Unlock()
	brokerList = addr
}

// SetTopic overrides the topic used by new senders.
func SetTopic(t string) {
	configMu.Lock()
	defer configMu.Unlock()
	topic = t
}

func currentConfig() (string, string) {
	configMu.RLock()
	defer configMu.RUnlock()
	return brokerList, topic
}

// QueueEventSender implements messaging.EventSender on a sarama sync
// producer. Events are JSON-encoded and keyed by instrument.
type QueueEventSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueEventSender connects a sync producer to the configured broker.
func NewQueueEventSender() (*QueueEventSender, error) {
	broker, t := currentConfig()
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = maxRetry

	producer, err := sarama.NewSyncProducer([]string{broker}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &QueueEventSender{producer: producer, topic: t}, nil
}

// newQueueEventSenderWith wires an existing producer, for tests.
func newQueueEventSenderWith(p sarama.SyncProducer, t string) *QueueEventSender {
	return &QueueEventSender{producer: p, topic: t}
}

// SendBookEvent publishes the event to the queue.
func (q *QueueEventSender) SendBookEvent(ev *messaging.BookEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal book event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(ev.Instrument),
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send event to Kafka: %w", err)
	}
	return nil
}

// Close shuts the underlying producer down.
func (q *QueueEventSender) Close() error {
	return q.producer.Close()
}
