package queue

import (
	"errors"
	"sync"

	"github.com/velostrade/bookcore/pkg/messaging"
)

// poolSize bounds the number of concurrently checked-out producers.
const poolSize = 32

// ErrPoolExhausted is returned when every pooled sender is checked out.
var ErrPoolExhausted = errors.New("event sender pool exhausted")

var (
	poolOnce sync.Once
	poolErr  error
	pool     chan messaging.EventSender
)

func initPool() {
	pool = make(chan messaging.EventSender, poolSize)
	for i := 0; i < poolSize; i++ {
		s, err := NewQueueEventSender()
		if err != nil {
			poolErr = err
			return
		}
		pool <- s
	}
}

// GetSender checks a sender out of the shared pool. The pool connects to
// the configured broker on first use; callers hand senders back with
// ReturnSender when done.
func GetSender() (messaging.EventSender, error) {
	poolOnce.Do(initPool)
	if poolErr != nil {
		return nil, poolErr
	}
	select {
	case s := <-pool:
		return s, nil
	default:
		return nil, ErrPoolExhausted
	}
}

// ReturnSender hands a sender back. Senders that no longer fit are
// closed rather than leaked.
func ReturnSender(s messaging.EventSender) {
	if s == nil {
		return
	}
	select {
	case pool <- s:
	default:
		_ = s.Close()
	}
}

// SendEvent publishes one event through a pooled sender.
func SendEvent(ev *messaging.BookEvent) error {
	s, err := GetSender()
	if err != nil {
		return err
	}
	defer ReturnSender(s)
	return s.SendBookEvent(ev)
}
