package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

func insertTrade(t *testing.T, s store.Store, configID string, profit float64, at time.Time) {
	t.Helper()
	err := s.InsertTrade(context.Background(), &models.Trade{
		ID:            uuid.New().String(),
		ConfigID:      configID,
		OpportunityID: uuid.New().String(),
		Kind:          string(models.KindSpatial),
		CurrencyPairs: []string{"EUR/USD"},
		Action:        models.ActionSell,
		Broker:        "Alpha",
		Amount:        1000,
		Rate:          1.0850,
		Profit:        profit,
		Status:        models.TradeStatusExecuted,
		ExecutionTime: at,
		CreatedAt:     at,
	})
	require.NoError(t, err)
}

func TestHourlyTradeCountRollingWindow(t *testing.T) {
	mem := store.NewMemory()
	g := NewGovernors(mem, false)
	now := time.Now().UTC()

	insertTrade(t, mem, "cfg", 1, now.Add(-30*time.Minute))
	insertTrade(t, mem, "cfg", 1, now.Add(-59*time.Minute))
	insertTrade(t, mem, "cfg", 1, now.Add(-2*time.Hour))
	insertTrade(t, mem, "other", 1, now.Add(-5*time.Minute))

	count, err := g.HourlyTradeCount(context.Background(), "cfg", now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDailyLossSumsOnlyLosses(t *testing.T) {
	mem := store.NewMemory()
	g := NewGovernors(mem, false)
	now := time.Now().UTC()
	startOfDay := now.Truncate(24 * time.Hour)

	insertTrade(t, mem, "cfg", -30, startOfDay.Add(time.Minute))
	insertTrade(t, mem, "cfg", -20, now)
	insertTrade(t, mem, "cfg", 500, now)
	insertTrade(t, mem, "cfg", -999, startOfDay.Add(-time.Minute))

	loss, err := g.DailyLoss(context.Background(), "cfg", now)
	require.NoError(t, err)
	assert.InDelta(t, 50, loss, 1e-9)
}

func TestAutonomousGateHourlyBoundary(t *testing.T) {
	mem := store.NewMemory()
	g := NewGovernors(mem, false)
	now := time.Now().UTC()

	cfg := eligibilityConfig()
	cfg.Autonomous.MaxTradesPerHour = 1

	status, err := g.AutonomousGate(context.Background(), cfg, now)
	require.NoError(t, err)
	assert.False(t, status.Suspended())

	insertTrade(t, mem, cfg.ID, 1, now.Add(-10*time.Minute))

	status, err = g.AutonomousGate(context.Background(), cfg, now)
	require.NoError(t, err)
	assert.True(t, status.HourlyLimitHit)
	assert.True(t, status.Suspended())
}

func TestAutonomousGateDailyLossBoundary(t *testing.T) {
	mem := store.NewMemory()
	g := NewGovernors(mem, false)
	now := time.Now().UTC()

	cfg := eligibilityConfig()
	cfg.Autonomous.MaxDailyLoss = 0.05 // 500 on 10000 capital

	insertTrade(t, mem, cfg.ID, -100, now)
	status, err := g.AutonomousGate(context.Background(), cfg, now)
	require.NoError(t, err)
	assert.False(t, status.DailyLossLimitHit)

	insertTrade(t, mem, cfg.ID, -600, now)
	status, err = g.AutonomousGate(context.Background(), cfg, now)
	require.NoError(t, err)
	assert.True(t, status.DailyLossLimitHit)
	assert.True(t, status.Suspended())
}

func TestAdvisorGateTradingHoursInclusive(t *testing.T) {
	mem := store.NewMemory()
	g := NewGovernors(mem, false)

	cfg := eligibilityConfig()
	cfg.TradingMode = models.ModeAdvisorAssisted
	cfg.Advisor.TradingHoursStart = 8
	cfg.Advisor.TradingHoursEnd = 18

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		hour   int
		active bool
	}{
		{7, false},
		{8, true},
		{13, true},
		{18, true},
		{19, false},
	}
	for _, tc := range cases {
		status, err := g.AdvisorGate(context.Background(), cfg, base.Add(time.Duration(tc.hour)*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, tc.active, status.TradingHoursActive, "hour %d", tc.hour)
	}
}

func TestAdvisorGateConcurrencyProxyVsRealCount(t *testing.T) {
	mem := store.NewMemory()
	now := time.Now().UTC()

	cfg := eligibilityConfig()
	cfg.TradingMode = models.ModeAdvisorAssisted
	cfg.Advisor.MaxConcurrentTrades = 1

	// One position held longer than an hour: only a trade record outside the
	// rolling window.
	require.NoError(t, mem.InsertPosition(context.Background(), &models.Position{
		ID:           "pos-1",
		ConfigID:     cfg.ID,
		Broker:       "Alpha",
		CurrencyPair: "EUR/USD",
		PositionType: models.PositionLong,
		Amount:       1000,
		EntryRate:    1.0850,
		CurrentRate:  1.0850,
		Status:       models.PositionStatusOpen,
		OpenedAt:     now.Add(-2 * time.Hour),
	}))
	insertTrade(t, mem, cfg.ID, 1, now.Add(-2*time.Hour))

	proxy := NewGovernors(mem, false)
	status, err := proxy.AdvisorGate(context.Background(), cfg, now)
	require.NoError(t, err)
	assert.False(t, status.ConcurrentLimitHit, "proxy undercounts old positions")

	counting := NewGovernors(mem, true)
	status, err = counting.AdvisorGate(context.Background(), cfg, now)
	require.NoError(t, err)
	assert.True(t, status.ConcurrentLimitHit)
}

func TestAdvisorGateSessionLimit(t *testing.T) {
	mem := store.NewMemory()
	g := NewGovernors(mem, false)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	cfg := eligibilityConfig()
	cfg.TradingMode = models.ModeAdvisorAssisted
	cfg.Advisor.MaxTradesPerSession = 2

	insertTrade(t, mem, cfg.ID, 1, now.Add(-5*time.Minute))
	insertTrade(t, mem, cfg.ID, 1, now.Add(-10*time.Minute))

	status, err := g.AdvisorGate(context.Background(), cfg, now)
	require.NoError(t, err)
	assert.True(t, status.SessionLimitHit)
	assert.True(t, status.Suspended())
}
