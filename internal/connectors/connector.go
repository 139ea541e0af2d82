// Package connectors hosts the broker connector abstraction. Every connector
// here is simulated: it validates credential shape and answers with synthetic
// account and market data, so the rest of the system exercises the real
// interface without live broker accounts.
package connectors

import (
	"context"
	"time"

	"github.com/finexa/fxarb/internal/credentials"
	"github.com/finexa/fxarb/internal/models"
)

// ValidationTimeout bounds one credential validation call.
const ValidationTimeout = 10 * time.Second

// ValidationResult is the outcome of a credential check against a broker.
type ValidationResult struct {
	Broker    string    `json:"broker"`
	Valid     bool      `json:"valid"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}

// AccountInfo is the broker-side account state a connector reports.
type AccountInfo struct {
	Broker    string  `json:"broker"`
	AccountID string  `json:"account_id"`
	Balance   float64 `json:"balance"`
	Currency  string  `json:"currency"`
	Leverage  int     `json:"leverage"`
}

// Connector is one broker integration.
type Connector interface {
	Name() string
	// Validate checks the credentials against the broker. Callers wrap the
	// context with ValidationTimeout.
	Validate(ctx context.Context) (*ValidationResult, error)
	AccountInfo(ctx context.Context) (*AccountInfo, error)
	// MarketData returns the broker's current quotes for the given pairs.
	MarketData(ctx context.Context, pairs []string) (map[string]float64, error)
}

// New builds the connector for a broker. Unknown brokers get the generic
// simulated connector; there is no error path by construction.
func New(broker string, fields credentials.Fields, rates models.RateSnapshot) Connector {
	return &simulated{
		broker: broker,
		fields: fields,
		rates:  rates,
	}
}
