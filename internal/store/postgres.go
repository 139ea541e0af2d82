package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/finexa/fxarb/internal/models"
)

// DatabasePool is the subset of pgxpool.Pool the store uses. Mock pools
// implement the same interface in tests.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Postgres is the pgx-backed Store. Policy groups are stored as JSONB
// documents keyed by the config row; trades and positions are flat rows.
type Postgres struct {
	pool DatabasePool
}

func NewPostgres(pool DatabasePool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) InsertConfig(ctx context.Context, cfg *models.TradingConfig) error {
	sizing, err := json.Marshal(cfg.Sizing)
	if err != nil {
		return fmt.Errorf("marshal sizing: %w", err)
	}
	autonomous, err := json.Marshal(cfg.Autonomous)
	if err != nil {
		return fmt.Errorf("marshal autonomous policy: %w", err)
	}
	advisor, err := json.Marshal(cfg.Advisor)
	if err != nil {
		return fmt.Errorf("marshal advisor policy: %w", err)
	}

	query := `
		INSERT INTO trading_configs (id, trading_mode, auto_execute, sizing, autonomous, advisor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := p.pool.Exec(ctx, query,
		cfg.ID, string(cfg.TradingMode), cfg.AutoExecute, sizing, autonomous, advisor, cfg.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert trading config: %w", err)
	}
	return nil
}

func (p *Postgres) GetConfig(ctx context.Context, id string) (*models.TradingConfig, error) {
	query := `
		SELECT id, trading_mode, auto_execute, sizing, autonomous, advisor, created_at
		FROM trading_configs
		WHERE id = $1
	`
	cfg, err := scanConfig(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trading config: %w", err)
	}
	return cfg, nil
}

func (p *Postgres) ConfigsByMode(ctx context.Context, mode models.TradingMode) ([]*models.TradingConfig, error) {
	query := `
		SELECT id, trading_mode, auto_execute, sizing, autonomous, advisor, created_at
		FROM trading_configs
		WHERE trading_mode = $1 AND auto_execute = true
		ORDER BY created_at
	`
	rows, err := p.pool.Query(ctx, query, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to list trading configs: %w", err)
	}
	defer rows.Close()

	var out []*models.TradingConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trading config: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func scanConfig(row pgx.Row) (*models.TradingConfig, error) {
	var (
		cfg                         models.TradingConfig
		mode                        string
		sizing, autonomous, advisor []byte
	)
	if err := row.Scan(&cfg.ID, &mode, &cfg.AutoExecute, &sizing, &autonomous, &advisor, &cfg.CreatedAt); err != nil {
		return nil, err
	}
	cfg.TradingMode = models.TradingMode(mode)
	if err := json.Unmarshal(sizing, &cfg.Sizing); err != nil {
		return nil, fmt.Errorf("unmarshal sizing: %w", err)
	}
	if err := json.Unmarshal(autonomous, &cfg.Autonomous); err != nil {
		return nil, fmt.Errorf("unmarshal autonomous policy: %w", err)
	}
	if err := json.Unmarshal(advisor, &cfg.Advisor); err != nil {
		return nil, fmt.Errorf("unmarshal advisor policy: %w", err)
	}
	return &cfg, nil
}

func (p *Postgres) InsertTrade(ctx context.Context, trade *models.Trade) error {
	query := `
		INSERT INTO trades (id, config_id, opportunity_id, kind, currency_pairs, action, broker,
			amount, rate, profit, status, execution_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if _, err := p.pool.Exec(ctx, query,
		trade.ID, trade.ConfigID, trade.OpportunityID, trade.Kind, trade.CurrencyPairs,
		string(trade.Action), trade.Broker, trade.Amount, trade.Rate, trade.Profit,
		trade.Status, trade.ExecutionTime, trade.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (p *Postgres) TradesByConfig(ctx context.Context, configID string) ([]*models.Trade, error) {
	query := `
		SELECT id, config_id, opportunity_id, kind, currency_pairs, action, broker,
			amount, rate, profit, status, execution_time, created_at
		FROM trades
		WHERE config_id = $1
		ORDER BY execution_time
	`
	rows, err := p.pool.Query(ctx, query, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var out []*models.Trade
	for rows.Next() {
		var (
			trade  models.Trade
			action string
		)
		if err := rows.Scan(&trade.ID, &trade.ConfigID, &trade.OpportunityID, &trade.Kind,
			&trade.CurrencyPairs, &action, &trade.Broker, &trade.Amount, &trade.Rate,
			&trade.Profit, &trade.Status, &trade.ExecutionTime, &trade.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trade.Action = models.TradeAction(action)
		out = append(out, &trade)
	}
	return out, rows.Err()
}

func (p *Postgres) CountTradesSince(ctx context.Context, configID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM trades WHERE config_id = $1 AND execution_time >= $2`
	var count int
	if err := p.pool.QueryRow(ctx, query, configID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

func (p *Postgres) DailyLossSince(ctx context.Context, configID string, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(ABS(profit)), 0)
		FROM trades
		WHERE config_id = $1 AND execution_time >= $2 AND profit < 0
	`
	var loss float64
	if err := p.pool.QueryRow(ctx, query, configID, since).Scan(&loss); err != nil {
		return 0, fmt.Errorf("failed to sum daily loss: %w", err)
	}
	return loss, nil
}

func (p *Postgres) InsertPosition(ctx context.Context, pos *models.Position) error {
	query := `
		INSERT INTO positions (id, config_id, broker, currency_pair, position_type, amount,
			entry_rate, current_rate, unrealized_pnl, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := p.pool.Exec(ctx, query,
		pos.ID, pos.ConfigID, pos.Broker, pos.CurrencyPair, string(pos.PositionType),
		pos.Amount, pos.EntryRate, pos.CurrentRate, pos.UnrealizedPnL, pos.Status, pos.OpenedAt,
	); err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

const positionColumns = `id, config_id, broker, currency_pair, position_type, amount,
	entry_rate, current_rate, unrealized_pnl, status, opened_at, closed_at, realized_pnl`

func scanPosition(row pgx.Row) (*models.Position, error) {
	var (
		pos   models.Position
		ptype string
	)
	if err := row.Scan(&pos.ID, &pos.ConfigID, &pos.Broker, &pos.CurrencyPair, &ptype,
		&pos.Amount, &pos.EntryRate, &pos.CurrentRate, &pos.UnrealizedPnL, &pos.Status,
		&pos.OpenedAt, &pos.ClosedAt, &pos.RealizedPnL); err != nil {
		return nil, err
	}
	pos.PositionType = models.PositionType(ptype)
	return &pos, nil
}

func (p *Postgres) GetOpenPosition(ctx context.Context, id string) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1 AND status = 'open'`
	pos, err := scanPosition(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return pos, nil
}

func (p *Postgres) OpenPositions(ctx context.Context, configID string) ([]*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE config_id = $1 AND status = 'open' ORDER BY opened_at`
	rows, err := p.pool.Query(ctx, query, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open positions: %w", err)
	}
	defer rows.Close()

	var out []*models.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

func (p *Postgres) CountOpenPositions(ctx context.Context, configID string) (int, error) {
	query := `SELECT COUNT(*) FROM positions WHERE config_id = $1 AND status = 'open'`
	var count int
	if err := p.pool.QueryRow(ctx, query, configID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count open positions: %w", err)
	}
	return count, nil
}

func (p *Postgres) MarkPosition(ctx context.Context, id string, currentRate, unrealizedPnL float64) error {
	query := `UPDATE positions SET current_rate = $2, unrealized_pnl = $3 WHERE id = $1`
	tag, err := p.pool.Exec(ctx, query, id, currentRate, unrealizedPnL)
	if err != nil {
		return fmt.Errorf("failed to mark position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ClosePosition(ctx context.Context, id string, closedAt time.Time, closingRate, realizedPnL float64) error {
	query := `
		UPDATE positions
		SET status = 'closed', closed_at = $2, current_rate = $3, realized_pnl = $4
		WHERE id = $1 AND status = 'open'
	`
	tag, err := p.pool.Exec(ctx, query, id, closedAt, closingRate, realizedPnL)
	if err != nil {
		return fmt.Errorf("failed to close position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpsertBalance(ctx context.Context, configID, broker, currency string, delta decimal.Decimal) error {
	query := `
		INSERT INTO broker_balances (config_id, broker, currency, amount, last_updated)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (config_id, broker, currency)
		DO UPDATE SET
			amount = broker_balances.amount + EXCLUDED.amount,
			last_updated = NOW()
	`
	if _, err := p.pool.Exec(ctx, query, configID, broker, currency, delta); err != nil {
		return fmt.Errorf("failed to upsert broker balance: %w", err)
	}
	return nil
}

func (p *Postgres) Balances(ctx context.Context, configID string) ([]*models.BrokerBalance, error) {
	query := `
		SELECT config_id, broker, currency, amount, last_updated
		FROM broker_balances
		WHERE config_id = $1
		ORDER BY broker, currency
	`
	rows, err := p.pool.Query(ctx, query, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to list broker balances: %w", err)
	}
	defer rows.Close()

	var out []*models.BrokerBalance
	for rows.Next() {
		var bal models.BrokerBalance
		if err := rows.Scan(&bal.ConfigID, &bal.Broker, &bal.Currency, &bal.Amount, &bal.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan broker balance: %w", err)
		}
		out = append(out, &bal)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertCredential(ctx context.Context, cred *models.BrokerCredential) error {
	query := `
		INSERT INTO broker_credentials (id, broker_name, label, payload, status, last_validated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := p.pool.Exec(ctx, query,
		cred.ID, cred.BrokerName, cred.Label, cred.Payload, cred.Status, cred.LastValidated, cred.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

func (p *Postgres) GetCredential(ctx context.Context, id string) (*models.BrokerCredential, error) {
	query := `
		SELECT id, broker_name, label, payload, status, last_validated, created_at
		FROM broker_credentials
		WHERE id = $1
	`
	var cred models.BrokerCredential
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&cred.ID, &cred.BrokerName, &cred.Label, &cred.Payload, &cred.Status, &cred.LastValidated, &cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &cred, nil
}

func (p *Postgres) ListCredentials(ctx context.Context) ([]*models.BrokerCredential, error) {
	query := `
		SELECT id, broker_name, label, payload, status, last_validated, created_at
		FROM broker_credentials
		ORDER BY created_at
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.BrokerCredential
	for rows.Next() {
		var cred models.BrokerCredential
		if err := rows.Scan(&cred.ID, &cred.BrokerName, &cred.Label, &cred.Payload,
			&cred.Status, &cred.LastValidated, &cred.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		out = append(out, &cred)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateCredentialStatus(ctx context.Context, id, status string, validatedAt time.Time) error {
	query := `UPDATE broker_credentials SET status = $2, last_validated = $3 WHERE id = $1`
	tag, err := p.pool.Exec(ctx, query, id, status, validatedAt)
	if err != nil {
		return fmt.Errorf("failed to update credential status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteCredential(ctx context.Context, id string) error {
	query := `DELETE FROM broker_credentials WHERE id = $1`
	tag, err := p.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
