package domain

import "time"

// SignalTTL is how long an issued trade signal stays executable.
const SignalTTL = 5 * time.Minute

// SignalStatus is the lifecycle state of a trade signal.
type SignalStatus string

const (
	SignalPending   SignalStatus = "PENDING"
	SignalExecuted  SignalStatus = "EXECUTED"
	SignalExpired   SignalStatus = "EXPIRED"
	SignalCancelled SignalStatus = "CANCELLED"
)

// TradeSignal is a time-boxed trade intent handed to the transaction
// submitter. Terminal states: EXECUTED, EXPIRED (swept elsewhere), CANCELLED.
type TradeSignal struct {
	SignalID    string // deterministic hash, see idhash
	UserID      string
	Mint        string
	Symbol      string
	Amount      float64 // quote-currency units
	SlippageBps int
	Status      SignalStatus
	CreatedAt   int64 // Unix milliseconds
	ExpiresAt   int64 // CreatedAt + SignalTTL
}

// Expired reports whether the signal's TTL has elapsed at the given time.
func (s *TradeSignal) Expired(nowMs int64) bool {
	return nowMs >= s.ExpiresAt
}
