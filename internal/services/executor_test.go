package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

// fixedRates is a RateSource pinned to one snapshot.
type fixedRates struct {
	snapshot models.RateSnapshot
}

func (f *fixedRates) Snapshot() models.RateSnapshot {
	return f.snapshot
}

func executorFixture(t *testing.T) (*Executor, *Book, *store.Memory, *models.TradingConfig) {
	t.Helper()
	mem := store.NewMemory()
	book := NewBook()
	rates := &fixedRates{snapshot: models.RateSnapshot{
		"Alpha": {"EUR/USD": 1.0850},
		"Beta":  {"EUR/USD": 1.0860},
	}}
	executor := NewExecutor(mem, book, rates, nil)

	cfg := eligibilityConfig()
	require.NoError(t, mem.InsertConfig(context.Background(), cfg))
	return executor, book, mem, cfg
}

func TestManualPositionValue(t *testing.T) {
	sizing := models.ManualSizing{StartingCapital: 10000, RiskTolerance: 0.05, MaxPositionSize: 0.1}
	// min(10000*0.1, 10000*0.05*10) = min(1000, 5000)
	assert.InDelta(t, 1000, ManualPositionValue(sizing), 1e-9)

	sizing = models.ManualSizing{StartingCapital: 10000, RiskTolerance: 0.01, MaxPositionSize: 0.5}
	// min(5000, 1000)
	assert.InDelta(t, 1000, ManualPositionValue(sizing), 1e-9)
}

func TestExecuteManualSpatialWritesTradesAndPositions(t *testing.T) {
	executor, book, mem, cfg := executorFixture(t)
	opp := testOpportunity("opp-1", 0.0922)
	opp.ProfitPotential = 0.001
	book.Replace([]*models.ArbitrageOpportunity{opp})

	result, err := executor.ExecuteManual(context.Background(), "opp-1", cfg)
	require.NoError(t, err)

	expectedValue := ManualPositionValue(cfg.Sizing)
	assert.InDelta(t, expectedValue, result.PositionValue, 1e-9)
	require.Len(t, result.Trades, 2)

	buy, sell := result.Trades[0], result.Trades[1]
	assert.Equal(t, models.ActionBuy, buy.Action)
	assert.Equal(t, "Alpha", buy.Broker)
	assert.Zero(t, buy.Profit)
	assert.Equal(t, models.ActionSell, sell.Action)
	assert.Equal(t, "Beta", sell.Broker)
	// Profit scales linearly from the 10000 reference notional.
	assert.InDelta(t, 0.001*(expectedValue/ReferenceNotional), sell.Profit, 1e-12)

	trades, err := mem.TradesByConfig(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	positions, err := mem.OpenPositions(context.Background(), cfg.ID)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	types := map[models.PositionType]string{}
	for _, pos := range positions {
		types[pos.PositionType] = pos.Broker
	}
	assert.Equal(t, "Alpha", types[models.PositionLong])
	assert.Equal(t, "Beta", types[models.PositionShort])

	stored, err := book.Get("opp-1")
	require.NoError(t, err)
	assert.True(t, stored.Executed)
	require.NotNil(t, stored.ExecutionDetails)
	assert.Equal(t, ExecutionManual, stored.ExecutionDetails.ExecutionType)
	assert.Equal(t, cfg.ID, stored.ExecutionDetails.ConfigID)
}

func TestExecuteSecondAttemptConflicts(t *testing.T) {
	executor, book, _, cfg := executorFixture(t)
	book.Replace([]*models.ArbitrageOpportunity{testOpportunity("opp-1", 0.1)})

	_, err := executor.ExecuteManual(context.Background(), "opp-1", cfg)
	require.NoError(t, err)

	_, err = executor.ExecuteManual(context.Background(), "opp-1", cfg)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)

	_, err = executor.ExecuteAutonomous(context.Background(), "opp-1", cfg)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
}

func TestExecuteAutonomousSizing(t *testing.T) {
	executor, book, _, cfg := executorFixture(t)
	cfg.Autonomous.MaxRiskPct = 0.02
	book.Replace([]*models.ArbitrageOpportunity{testOpportunity("opp-1", 0.1)})

	result, err := executor.ExecuteAutonomous(context.Background(), "opp-1", cfg)
	require.NoError(t, err)
	assert.InDelta(t, 200, result.PositionValue, 1e-9)
	require.NotNil(t, result.Opportunity.ExecutionDetails)
	assert.Equal(t, ExecutionAutonomous, result.Opportunity.ExecutionDetails.ExecutionType)
}

func TestExecuteAdvisorAssistedClampsOracleSize(t *testing.T) {
	executor, book, _, cfg := executorFixture(t)
	cfg.Advisor.MaxRiskPct = 0.03
	book.Replace([]*models.ArbitrageOpportunity{
		testOpportunity("opp-1", 0.1),
		testOpportunity("opp-2", 0.1),
	})

	// Oversized oracle proposal is clamped to capital * max risk.
	decision := Decision{Decision: DecisionExecute, PositionSize: 99999, Reasoning: "go"}
	result, err := executor.ExecuteAdvisorAssisted(context.Background(), "opp-1", cfg, decision, false)
	require.NoError(t, err)
	assert.InDelta(t, 300, result.PositionValue, 1e-9)
	assert.Equal(t, ExecutionAdvisor, result.Opportunity.ExecutionDetails.ExecutionType)
	assert.Equal(t, "go", result.Opportunity.ExecutionDetails.AdvisorReasoning)

	// A sane proposal is used as-is; the auto path gets its own tag.
	decision = Decision{Decision: DecisionExecute, PositionSize: 150}
	result, err = executor.ExecuteAdvisorAssisted(context.Background(), "opp-2", cfg, decision, true)
	require.NoError(t, err)
	assert.InDelta(t, 150, result.PositionValue, 1e-9)
	assert.Equal(t, ExecutionAdvisorAutoTag, result.Opportunity.ExecutionDetails.ExecutionType)
}

func TestExecuteTriangularSingleLeg(t *testing.T) {
	executor, book, mem, cfg := executorFixture(t)
	opp := testOpportunity("opp-1", 0.61)
	opp.Kind = models.KindTriangular
	opp.CurrencyPairs = []string{"EUR/USD", "USD/JPY", "EUR/JPY"}
	opp.Brokers = []string{"Alpha"}
	opp.ProfitPotential = 1.0
	book.Replace([]*models.ArbitrageOpportunity{opp})

	result, err := executor.ExecuteManual(context.Background(), "opp-1", cfg)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, models.ActionTriangular, result.Trades[0].Action)
	assert.InDelta(t, 1.0, result.Trades[0].Rate, 1e-9)

	positions, err := mem.OpenPositions(context.Background(), cfg.ID)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, models.PositionTriangular, positions[0].PositionType)
	assert.Equal(t, "EUR/USD,USD/JPY,EUR/JPY", positions[0].CurrencyPair)
}

func TestClosePositionRealizesPnLAndCreditsBalance(t *testing.T) {
	executor, _, mem, cfg := executorFixture(t)

	pos := &models.Position{
		ID:           "pos-1",
		ConfigID:     cfg.ID,
		Broker:       "Alpha",
		CurrencyPair: "EUR/USD",
		PositionType: models.PositionLong,
		Amount:       10000,
		EntryRate:    1.0800,
		CurrentRate:  1.0800,
		Status:       models.PositionStatusOpen,
		OpenedAt:     time.Now().UTC(),
	}
	require.NoError(t, mem.InsertPosition(context.Background(), pos))

	// Closing rate comes from the first sorted broker quoting the pair:
	// Alpha at 1.0850.
	result, err := executor.ClosePosition(context.Background(), "pos-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0850, result.ClosingRate, 1e-9)
	assert.InDelta(t, 50, result.RealizedPnL, 1e-6)

	_, err = mem.GetOpenPosition(context.Background(), "pos-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	balances, err := mem.Balances(context.Background(), cfg.ID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "Alpha", balances[0].Broker)
	assert.Equal(t, "USD", balances[0].Currency)
	assert.True(t, balances[0].Amount.Sub(decimal.NewFromFloat(50)).Abs().LessThan(decimal.NewFromFloat(1e-6)))

	trades, err := mem.TradesByConfig(context.Background(), cfg.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.TradeKindPositionClose, trades[0].Kind)
	assert.Equal(t, models.ActionClose, trades[0].Action)
	assert.Equal(t, "close_pos-1", trades[0].OpportunityID)
	assert.InDelta(t, 50, trades[0].Profit, 1e-6)
}

func TestClosePositionShortPnL(t *testing.T) {
	executor, _, mem, cfg := executorFixture(t)

	require.NoError(t, mem.InsertPosition(context.Background(), &models.Position{
		ID:           "pos-1",
		ConfigID:     cfg.ID,
		Broker:       "Beta",
		CurrencyPair: "EUR/USD",
		PositionType: models.PositionShort,
		Amount:       10000,
		EntryRate:    1.0900,
		CurrentRate:  1.0900,
		Status:       models.PositionStatusOpen,
		OpenedAt:     time.Now().UTC(),
	}))

	result, err := executor.ClosePosition(context.Background(), "pos-1")
	require.NoError(t, err)
	// Short: (1.0900 - 1.0850) * 10000.
	assert.InDelta(t, 50, result.RealizedPnL, 1e-6)
}

func TestClosePositionWithoutRateFails(t *testing.T) {
	executor, _, mem, cfg := executorFixture(t)

	require.NoError(t, mem.InsertPosition(context.Background(), &models.Position{
		ID:           "pos-1",
		ConfigID:     cfg.ID,
		Broker:       "Alpha",
		CurrencyPair: "XAU/USD",
		PositionType: models.PositionLong,
		Amount:       100,
		EntryRate:    2000,
		CurrentRate:  2000,
		Status:       models.PositionStatusOpen,
		OpenedAt:     time.Now().UTC(),
	}))

	_, err := executor.ClosePosition(context.Background(), "pos-1")
	assert.ErrorIs(t, err, ErrNoRate)

	_, err = executor.ClosePosition(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHedgePositionOpensOpposite(t *testing.T) {
	executor, _, mem, cfg := executorFixture(t)

	require.NoError(t, mem.InsertPosition(context.Background(), &models.Position{
		ID:           "pos-1",
		ConfigID:     cfg.ID,
		Broker:       "Alpha",
		CurrencyPair: "EUR/USD",
		PositionType: models.PositionLong,
		Amount:       5000,
		EntryRate:    1.0800,
		CurrentRate:  1.0800,
		Status:       models.PositionStatusOpen,
		OpenedAt:     time.Now().UTC(),
	}))

	result, err := executor.HedgePosition(context.Background(), "pos-1")
	require.NoError(t, err)
	assert.Equal(t, models.PositionShort, result.HedgeType)
	assert.Equal(t, "pos-1", result.OriginalPositionID)
	assert.InDelta(t, 1.0850, result.HedgeRate, 1e-9)

	positions, err := mem.OpenPositions(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Len(t, positions, 2, "original position stays open")

	hedge, err := mem.GetOpenPosition(context.Background(), result.HedgePositionID)
	require.NoError(t, err)
	assert.Equal(t, models.PositionShort, hedge.PositionType)
	assert.InDelta(t, 5000, hedge.Amount, 1e-9)
	assert.Equal(t, "Alpha", hedge.Broker)

	trades, err := mem.TradesByConfig(context.Background(), cfg.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.TradeKindHedge, trades[0].Kind)
	assert.Zero(t, trades[0].Profit)
}
