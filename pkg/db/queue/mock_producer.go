package queue

import (
	"errors"

	"github.com/IBM/sarama"
)

// mockProducer records produced messages in memory. It implements the
// parts of sarama.SyncProducer the sender exercises; transactions are
// out of scope and fail loudly if reached.
type mockProducer struct {
	sent   []*sarama.ProducerMessage
	closed bool
	// failWith, when set, is returned from every send.
	failWith error
}

var errMockTxn = errors.New("mock producer is not transactional")

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	if m.failWith != nil {
		return 0, 0, m.failWith
	}
	m.sent = append(m.sent, msg)
	return 0, int64(len(m.sent) - 1), nil
}

func (m *mockProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, msgs...)
	return nil
}

func (m *mockProducer) Close() error {
	m.closed = true
	return nil
}

func (m *mockProducer) TxnStatus() sarama.ProducerTxnStatusFlag { return 0 }
func (m *mockProducer) IsTransactional() bool                   { return false }
func (m *mockProducer) BeginTxn() error                         { return errMockTxn }
func (m *mockProducer) CommitTxn() error                        { return errMockTxn }
func (m *mockProducer) AbortTxn() error                         { return errMockTxn }

func (m *mockProducer) AddMessageToTxn(*sarama.ConsumerMessage, string, *string) error {
	return errMockTxn
}

func (m *mockProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return errMockTxn
}
