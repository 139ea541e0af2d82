package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finexa/fxarb/internal/models"
)

// Memory is a mutex-guarded in-memory Store. It backs simulation runs (the
// default deployment has no database) and tests. Trade inserts are atomic
// per trade, which is what keeps the governor counters consistent.
type Memory struct {
	mu          sync.RWMutex
	configs     map[string]*models.TradingConfig
	trades      []*models.Trade
	positions   map[string]*models.Position
	balances    map[string]*models.BrokerBalance
	credentials map[string]*models.BrokerCredential
}

func NewMemory() *Memory {
	return &Memory{
		configs:     make(map[string]*models.TradingConfig),
		positions:   make(map[string]*models.Position),
		balances:    make(map[string]*models.BrokerBalance),
		credentials: make(map[string]*models.BrokerCredential),
	}
}

func (m *Memory) InsertConfig(_ context.Context, cfg *models.TradingConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cfg
	m.configs[cfg.ID] = &cp
	return nil
}

func (m *Memory) GetConfig(_ context.Context, id string) (*models.TradingConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (m *Memory) ConfigsByMode(_ context.Context, mode models.TradingMode) ([]*models.TradingConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.TradingConfig
	for _, cfg := range m.configs {
		if cfg.TradingMode == mode && cfg.AutoExecute {
			cp := *cfg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) InsertTrade(_ context.Context, trade *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *trade
	m.trades = append(m.trades, &cp)
	return nil
}

func (m *Memory) TradesByConfig(_ context.Context, configID string) ([]*models.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Trade
	for _, t := range m.trades {
		if t.ConfigID == configID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionTime.Before(out[j].ExecutionTime) })
	return out, nil
}

func (m *Memory) CountTradesSince(_ context.Context, configID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, t := range m.trades {
		if t.ConfigID == configID && !t.ExecutionTime.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) DailyLossSince(_ context.Context, configID string, since time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loss := 0.0
	for _, t := range m.trades {
		if t.ConfigID == configID && !t.ExecutionTime.Before(since) && t.Profit < 0 {
			loss += -t.Profit
		}
	}
	return loss, nil
}

func (m *Memory) InsertPosition(_ context.Context, pos *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pos
	m.positions[pos.ID] = &cp
	return nil
}

func (m *Memory) GetOpenPosition(_ context.Context, id string) (*models.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[id]
	if !ok || pos.Status != models.PositionStatusOpen {
		return nil, ErrNotFound
	}
	cp := *pos
	return &cp, nil
}

func (m *Memory) OpenPositions(_ context.Context, configID string) ([]*models.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Position
	for _, pos := range m.positions {
		if pos.ConfigID == configID && pos.Status == models.PositionStatusOpen {
			cp := *pos
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (m *Memory) CountOpenPositions(_ context.Context, configID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, pos := range m.positions {
		if pos.ConfigID == configID && pos.Status == models.PositionStatusOpen {
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkPosition(_ context.Context, id string, currentRate, unrealizedPnL float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return ErrNotFound
	}
	pos.CurrentRate = currentRate
	pos.UnrealizedPnL = unrealizedPnL
	return nil
}

func (m *Memory) ClosePosition(_ context.Context, id string, closedAt time.Time, closingRate, realizedPnL float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok || pos.Status != models.PositionStatusOpen {
		return ErrNotFound
	}
	pos.Status = models.PositionStatusClosed
	pos.ClosedAt = &closedAt
	pos.CurrentRate = closingRate
	pnl := realizedPnL
	pos.RealizedPnL = &pnl
	return nil
}

func balanceKey(configID, broker, currency string) string {
	return configID + "|" + broker + "|" + currency
}

func (m *Memory) UpsertBalance(_ context.Context, configID, broker, currency string, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := balanceKey(configID, broker, currency)
	bal, ok := m.balances[key]
	if !ok {
		bal = &models.BrokerBalance{ConfigID: configID, Broker: broker, Currency: currency}
		m.balances[key] = bal
	}
	bal.Amount = bal.Amount.Add(delta)
	bal.LastUpdated = time.Now().UTC()
	return nil
}

func (m *Memory) Balances(_ context.Context, configID string) ([]*models.BrokerBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.BrokerBalance
	for _, bal := range m.balances {
		if bal.ConfigID == configID {
			cp := *bal
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Broker != out[j].Broker {
			return out[i].Broker < out[j].Broker
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}

func (m *Memory) InsertCredential(_ context.Context, cred *models.BrokerCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cred
	m.credentials[cred.ID] = &cp
	return nil
}

func (m *Memory) GetCredential(_ context.Context, id string) (*models.BrokerCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.credentials[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (m *Memory) ListCredentials(_ context.Context) ([]*models.BrokerCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.BrokerCredential, 0, len(m.credentials))
	for _, cred := range m.credentials {
		cp := *cred
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateCredentialStatus(_ context.Context, id, status string, validatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[id]
	if !ok {
		return ErrNotFound
	}
	cred.Status = status
	cred.LastValidated = &validatedAt
	return nil
}

func (m *Memory) DeleteCredential(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[id]; !ok {
		return ErrNotFound
	}
	delete(m.credentials, id)
	return nil
}
