package models

import (
	"time"
)

// OpportunityKind identifies the arbitrage strategy behind an opportunity.
type OpportunityKind string

const (
	KindSpatial    OpportunityKind = "spatial"
	KindTriangular OpportunityKind = "triangular"
)

// ExecutionDetails records how an opportunity was converted into trades.
// It is set exactly once, when the opportunity is executed.
type ExecutionDetails struct {
	ConfigID         string    `json:"config_id"`
	ExecutedAt       time.Time `json:"executed_at"`
	PositionValue    float64   `json:"position_value"`
	TradeCount       int       `json:"trade_count"`
	ExecutionType    string    `json:"execution_type"`
	AdvisorReasoning string    `json:"advisor_reasoning,omitempty"`
}

// ArbitrageOpportunity represents a detected arbitrage candidate.
//
// An opportunity transitions Executed false -> true exactly once; after that
// it is immutable except for ExecutionDetails. Opportunities live only in the
// in-memory ranked book; durable state is the resulting trades and positions.
type ArbitrageOpportunity struct {
	ID            string          `json:"id"`
	Kind          OpportunityKind `json:"kind"`
	CurrencyPairs []string        `json:"currency_pairs"`
	Brokers       []string        `json:"brokers"`

	// Spatial-only fields.
	BuyBroker  string  `json:"buy_broker,omitempty"`
	SellBroker string  `json:"sell_broker,omitempty"`
	BuyRate    float64 `json:"buy_rate,omitempty"`
	SellRate   float64 `json:"sell_rate,omitempty"`

	// ProfitPotential is in absolute rate units; ProfitPercentage is derived
	// from it against the lower rate (spatial) or the quoted cross rate
	// (triangular).
	ProfitPotential  float64 `json:"profit_potential"`
	ProfitPercentage float64 `json:"profit_percentage"`

	// PositionSize is the reference notional used for profit scaling at
	// detection time. It does not constrain execution size.
	PositionSize float64 `json:"position_size"`

	ConfidenceScore float64   `json:"confidence_score"`
	DetectedAt      time.Time `json:"detected_at"`

	Executed         bool              `json:"executed"`
	ExecutionDetails *ExecutionDetails `json:"execution_details,omitempty"`
}

// Clone returns a deep copy. Book reads hand out clones so callers can never
// mutate shared state.
func (o *ArbitrageOpportunity) Clone() *ArbitrageOpportunity {
	cp := *o
	cp.CurrencyPairs = append([]string(nil), o.CurrencyPairs...)
	cp.Brokers = append([]string(nil), o.Brokers...)
	if o.ExecutionDetails != nil {
		details := *o.ExecutionDetails
		cp.ExecutionDetails = &details
	}
	return &cp
}

// InvolvesPair reports whether any of the given pairs appears among the
// opportunity's currency pairs.
func (o *ArbitrageOpportunity) InvolvesPair(pairs []string) bool {
	for _, want := range pairs {
		for _, have := range o.CurrencyPairs {
			if want == have {
				return true
			}
		}
	}
	return false
}

// InvolvesBroker reports whether any of the given brokers appears among the
// opportunity's brokers.
func (o *ArbitrageOpportunity) InvolvesBroker(brokers []string) bool {
	for _, want := range brokers {
		for _, have := range o.Brokers {
			if want == have {
				return true
			}
		}
	}
	return false
}
