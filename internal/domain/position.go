package domain

// PositionStatus is the lifecycle state of a position.
// Transitions: PENDING -> OPEN -> CLOSED. Never CLOSED -> OPEN.
type PositionStatus string

const (
	PositionPending PositionStatus = "PENDING"
	PositionOpen    PositionStatus = "OPEN"
	PositionClosed  PositionStatus = "CLOSED"
)

// Exit reason codes.
const (
	ExitReasonTakeProfit     = "TAKE_PROFIT"
	ExitReasonStopLoss       = "STOP_LOSS"
	ExitReasonSoldExternally = "SOLD_EXTERNALLY"
	ExitReasonNone           = "NONE"
)

// Position is an open holding monitored by the exit engine.
// Take-profit/stop-loss levels are copied from user settings at entry and
// immutable thereafter; records are never deleted, only closed.
type Position struct {
	PositionID string
	UserID     string
	Mint       string
	Symbol     string

	EntryPrice float64
	Amount     float64 // token units held
	EntryValue float64 // EntryPrice * Amount at entry

	CurrentPrice float64 // refreshed by the exit engine each tick
	CurrentValue float64

	TakeProfitPercent float64
	StopLossPercent   float64

	Status     PositionStatus
	ExitReason string // ExitReason* constant; NONE while open

	// PendingSignature marks an exit that found a route but still awaits
	// external signing. The position stays OPEN until the store observes
	// the close.
	PendingSignature bool

	OpenedAt int64 // Unix milliseconds
	ClosedAt int64 // 0 while open
}

// AgeMs returns the position age at the given time.
func (p *Position) AgeMs(nowMs int64) int64 {
	return nowMs - p.OpenedAt
}
