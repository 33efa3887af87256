package messaging

import "sync"

// MockEventSender is an EventSender that records events in memory.
// Used in tests and as a no-op fallback when Kafka is unavailable.
type MockEventSender struct {
	mu     sync.Mutex
	events []*BookEvent
	closed bool
}

// NewMockEventSender creates an empty mock sender.
func NewMockEventSender() *MockEventSender {
	return &MockEventSender{}
}

// SendBookEvent records the event.
func (m *MockEventSender) SendBookEvent(ev *BookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a snapshot of the recorded events.
func (m *MockEventSender) Events() []*BookEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*BookEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Close marks the sender closed.
func (m *MockEventSender) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockEventSender) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
