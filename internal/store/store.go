// Package store persists trades, positions, configs, broker balances and
// credentials. The engine only depends on the Store interface; the postgres
// implementation backs real deployments and the memory implementation backs
// simulation runs and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finexa/fxarb/internal/models"
)

// ErrNotFound is returned for point lookups that match nothing.
var ErrNotFound = errors.New("record not found")

type Store interface {
	// Configs. Insert-once, no update path.
	InsertConfig(ctx context.Context, cfg *models.TradingConfig) error
	GetConfig(ctx context.Context, id string) (*models.TradingConfig, error)
	// ConfigsByMode lists configs in the given mode with auto-execute set,
	// the shape the scheduler polls each cycle.
	ConfigsByMode(ctx context.Context, mode models.TradingMode) ([]*models.TradingConfig, error)

	// Trades. Append-only.
	InsertTrade(ctx context.Context, trade *models.Trade) error
	TradesByConfig(ctx context.Context, configID string) ([]*models.Trade, error)
	// CountTradesSince counts trades with execution_time >= since, the
	// rolling-hour governor query.
	CountTradesSince(ctx context.Context, configID string, since time.Time) (int, error)
	// DailyLossSince sums |profit| over losing trades with execution_time >=
	// since, the daily-loss governor query.
	DailyLossSince(ctx context.Context, configID string, since time.Time) (float64, error)

	// Positions.
	InsertPosition(ctx context.Context, pos *models.Position) error
	GetOpenPosition(ctx context.Context, id string) (*models.Position, error)
	OpenPositions(ctx context.Context, configID string) ([]*models.Position, error)
	CountOpenPositions(ctx context.Context, configID string) (int, error)
	MarkPosition(ctx context.Context, id string, currentRate, unrealizedPnL float64) error
	ClosePosition(ctx context.Context, id string, closedAt time.Time, closingRate, realizedPnL float64) error

	// Broker balance ledger, per config/broker/currency.
	UpsertBalance(ctx context.Context, configID, broker, currency string, delta decimal.Decimal) error
	Balances(ctx context.Context, configID string) ([]*models.BrokerBalance, error)

	// Broker credentials.
	InsertCredential(ctx context.Context, cred *models.BrokerCredential) error
	GetCredential(ctx context.Context, id string) (*models.BrokerCredential, error)
	ListCredentials(ctx context.Context) ([]*models.BrokerCredential, error)
	UpdateCredentialStatus(ctx context.Context, id, status string, validatedAt time.Time) error
	DeleteCredential(ctx context.Context, id string) error
}
