package models

import "time"

// TradeAction is the side or shape of an executed trade leg.
type TradeAction string

const (
	ActionBuy        TradeAction = "buy"
	ActionSell       TradeAction = "sell"
	ActionTriangular TradeAction = "triangular"
	ActionClose      TradeAction = "close"
	ActionHedge      TradeAction = "hedge"
)

// Trade kinds beyond the arbitrage strategies.
const (
	TradeKindPositionClose = "position_close"
	TradeKindHedge         = "hedge"
)

// Trade statuses.
const (
	TradeStatusExecuted = "executed"
)

// Trade is an immutable record of one executed leg. Trades are created only
// by the execution engine and never mutated afterwards.
type Trade struct {
	ID            string      `json:"id" db:"id"`
	ConfigID      string      `json:"config_id" db:"config_id"`
	OpportunityID string      `json:"opportunity_id" db:"opportunity_id"`
	Kind          string      `json:"kind" db:"kind"`
	CurrencyPairs []string    `json:"currency_pairs" db:"currency_pairs"`
	Action        TradeAction `json:"action" db:"action"`
	Broker        string      `json:"broker" db:"broker"`
	Amount        float64     `json:"amount" db:"amount"`
	Rate          float64     `json:"rate" db:"rate"`
	Profit        float64     `json:"profit" db:"profit"`
	Status        string      `json:"status" db:"status"`
	ExecutionTime time.Time   `json:"execution_time" db:"execution_time"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}
