package messaging

// EventSender defines an interface for publishing book events.
// This decouples the engine from specific transports like the Kafka
// writer or the queue package's pooled producer.
type EventSender interface {
	SendBookEvent(ev *BookEvent) error
	Close() error
}

// BookEvent is the message published after an update whose effect clears
// a subscriber threshold. Prices and quantities travel as decimal strings.
type BookEvent struct {
	Instrument string `json:"instrument"`
	Side       string `json:"side"`
	Effect     string `json:"effect"`
	BestBidPx  string `json:"best_bid_px"`
	BestBidQty string `json:"best_bid_qty"`
	BestAskPx  string `json:"best_ask_px"`
	BestAskQty string `json:"best_ask_qty"`
	RptSeq     int64  `json:"rpt_seq"`
	SeqNum     int64  `json:"seq_num"`
	TsNanos    int64  `json:"ts_nanos"`
}

// FeedUpdate is one inbound market-data update as decoded from the feed
// topic.
type FeedUpdate struct {
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	Action     string  `json:"action"`
	Px         float64 `json:"px"`
	Qty        string  `json:"qty"`
	RptSeq     int64   `json:"rpt_seq"`
	SeqNum     int64   `json:"seq_num"`
	OrderID    uint64  `json:"order_id,omitempty"`
}
