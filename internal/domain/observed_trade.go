package domain

import "time"

// ObservedTrade is a decoded trade event together with the notification
// it was extracted from.
type ObservedTrade struct {
	Signature  string // transaction signature
	Slot       uint64
	Monitor    string // monitored address the notification came from
	Event      TradeEvent
	ReceivedAt time.Time
}
