package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionType is the direction of an open exposure.
type PositionType string

const (
	PositionLong       PositionType = "long"
	PositionShort      PositionType = "short"
	PositionTriangular PositionType = "triangular"
)

// Position statuses.
const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

// Position is an open or closed exposure. Unlike trades, positions are
// long-lived: CurrentRate and UnrealizedPnL are refreshed on mark-to-market,
// and close/hedge transitions mutate status.
type Position struct {
	ID            string       `json:"id" db:"id"`
	ConfigID      string       `json:"config_id" db:"config_id"`
	Broker        string       `json:"broker" db:"broker"`
	CurrencyPair  string       `json:"currency_pair" db:"currency_pair"`
	PositionType  PositionType `json:"position_type" db:"position_type"`
	Amount        float64      `json:"amount" db:"amount"`
	EntryRate     float64      `json:"entry_rate" db:"entry_rate"`
	CurrentRate   float64      `json:"current_rate" db:"current_rate"`
	UnrealizedPnL float64      `json:"unrealized_pnl" db:"unrealized_pnl"`
	Status        string       `json:"status" db:"status"`
	OpenedAt      time.Time    `json:"opened_at" db:"opened_at"`
	ClosedAt      *time.Time   `json:"closed_at,omitempty" db:"closed_at"`
	RealizedPnL   *float64     `json:"realized_pnl,omitempty" db:"realized_pnl"`
}

// MarkToMarket refreshes the position's current rate and unrealized P&L.
func (p *Position) MarkToMarket(currentRate float64) {
	p.CurrentRate = currentRate
	p.UnrealizedPnL = p.PnLAt(currentRate)
}

// PnLAt computes the P&L of closing the position at the given rate.
// Triangular positions carry a placeholder rate of 1.0 and settle flat.
func (p *Position) PnLAt(rate float64) float64 {
	switch p.PositionType {
	case PositionLong:
		return (rate - p.EntryRate) * p.Amount
	case PositionShort:
		return (p.EntryRate - rate) * p.Amount
	default:
		return 0
	}
}

// BrokerBalance is one entry of the per-config broker balance ledger.
// Amounts are decimal so P&L credits accumulate without float drift.
type BrokerBalance struct {
	ConfigID    string          `json:"config_id" db:"config_id"`
	Broker      string          `json:"broker" db:"broker"`
	Currency    string          `json:"currency" db:"currency"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	LastUpdated time.Time       `json:"last_updated" db:"last_updated"`
}
