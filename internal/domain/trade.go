package domain

import "time"

// Side is the direction of a trade attempt.
type Side string

// Trade sides.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// AttemptStatus is the last known state of a trade attempt.
type AttemptStatus string

// Attempt statuses. Only relay-observed outcomes are recorded.
const (
	AttemptSubmitted AttemptStatus = "submitted"
	AttemptSimulated AttemptStatus = "simulated"
	AttemptRejected  AttemptStatus = "rejected"
	AttemptNotLanded AttemptStatus = "not_landed"
	AttemptFinalized AttemptStatus = "finalized"
	AttemptFailed    AttemptStatus = "failed"
	AttemptTimeout   AttemptStatus = "timeout"
)

// TradeAttempt records one bundle submission and its observed outcome.
type TradeAttempt struct {
	ID             string
	AlarmID        string // empty for manual trades
	Mint           string
	Side           Side
	TokenAmount    uint64
	SolAmountBound uint64 // max lamports in for buys, min lamports out for sells
	TipLamports    uint64
	BundleID       string
	Status         AttemptStatus
	TxID           string
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
