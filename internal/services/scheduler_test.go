package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

type recordingCache struct {
	stored [][]*models.ArbitrageOpportunity
}

func (r *recordingCache) StoreOpportunities(_ context.Context, opps []*models.ArbitrageOpportunity) error {
	r.stored = append(r.stored, opps)
	return nil
}

type recordingHub struct {
	broadcasts [][]*models.ArbitrageOpportunity
}

func (r *recordingHub) BroadcastOpportunities(opps []*models.ArbitrageOpportunity) {
	r.broadcasts = append(r.broadcasts, opps)
}

func schedulerFixture(t *testing.T) (*Scheduler, *Book, *store.Memory, *recordingCache, *recordingHub) {
	t.Helper()
	mem := store.NewMemory()
	book := NewBook()
	rates := &fixedRates{snapshot: models.RateSnapshot{
		"Alpha": {"EUR/USD": 1.0850, "GBP/USD": 1.2650},
		"Beta":  {"EUR/USD": 1.0860, "GBP/USD": 1.2662},
	}}
	executor := NewExecutor(mem, book, rates, nil)
	advisor := NewAdvisor("", "https://api.anthropic.com", "model", time.Second, nil)
	governors := NewGovernors(mem, false)
	notifier := NewNotificationService("", "", 0.01, nil)
	cache := &recordingCache{}
	hub := &recordingHub{}

	scheduler := NewScheduler(rates, book, mem, executor, advisor, governors, notifier,
		cache, hub, time.Second, 5*time.Second, nil)
	return scheduler, book, mem, cache, hub
}

func autonomousTestConfig() *models.TradingConfig {
	cfg := eligibilityConfig()
	cfg.TradingMode = models.ModeAutonomous
	cfg.AutoExecute = true
	cfg.Autonomous.MinProfitPct = 0.00001
	cfg.Autonomous.MinConfidence = 0.5
	cfg.Autonomous.PreferredPairs = nil
	cfg.Autonomous.TradeSpatial = true
	cfg.Autonomous.TradeTriangular = true
	return cfg
}

func TestRunCycleFillsBookCacheAndHub(t *testing.T) {
	scheduler, book, _, cache, hub := schedulerFixture(t)

	require.NoError(t, scheduler.RunCycle(context.Background()))

	opportunities := book.Snapshot()
	assert.NotEmpty(t, opportunities, "fixed spread snapshot must surface spatial opportunities")
	assert.Len(t, cache.stored, 1)
	assert.Len(t, hub.broadcasts, 1)
	assert.Equal(t, uint64(1), book.Version())
}

func TestRunCycleAutonomousExecutesEligible(t *testing.T) {
	scheduler, book, mem, _, _ := schedulerFixture(t)

	cfg := autonomousTestConfig()
	require.NoError(t, mem.InsertConfig(context.Background(), cfg))

	require.NoError(t, scheduler.RunCycle(context.Background()))

	trades, err := mem.TradesByConfig(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, trades)

	executed := 0
	for _, opp := range book.Snapshot() {
		if opp.Executed {
			executed++
			require.NotNil(t, opp.ExecutionDetails)
			assert.Equal(t, ExecutionAutonomous, opp.ExecutionDetails.ExecutionType)
		}
	}
	assert.Positive(t, executed)
	assert.LessOrEqual(t, executed, autonomousPerCycle)
}

func TestRunCycleHonorsHourlyGovernorWithinCycle(t *testing.T) {
	scheduler, _, mem, _, _ := schedulerFixture(t)

	// Two pairs produce two eligible opportunities, but only one execution
	// per hour is allowed. The gate re-check between candidates must stop
	// the second one.
	cfg := autonomousTestConfig()
	cfg.Autonomous.MaxTradesPerHour = 1
	require.NoError(t, mem.InsertConfig(context.Background(), cfg))

	require.NoError(t, scheduler.RunCycle(context.Background()))

	count, err := mem.CountTradesSince(context.Background(), cfg.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	// One spatial execution writes two trade legs atomically before the next
	// gate check runs.
	assert.Equal(t, 2, count)
}

func TestRunCycleSkipsSuspendedConfig(t *testing.T) {
	scheduler, _, mem, _, _ := schedulerFixture(t)

	cfg := autonomousTestConfig()
	cfg.Autonomous.MaxTradesPerHour = 1
	require.NoError(t, mem.InsertConfig(context.Background(), cfg))
	insertTrade(t, mem, cfg.ID, 1, time.Now().UTC().Add(-5*time.Minute))

	require.NoError(t, scheduler.RunCycle(context.Background()))

	trades, err := mem.TradesByConfig(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Len(t, trades, 1, "no new trades while the hourly governor is hit")
}

func TestRunCycleIgnoresManualConfigs(t *testing.T) {
	scheduler, _, mem, _, _ := schedulerFixture(t)

	cfg := eligibilityConfig()
	cfg.TradingMode = models.ModeManual
	cfg.AutoExecute = true
	require.NoError(t, mem.InsertConfig(context.Background(), cfg))

	require.NoError(t, scheduler.RunCycle(context.Background()))

	trades, err := mem.TradesByConfig(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestRunCycleAdvisorPathExecutesOnMockDecision(t *testing.T) {
	scheduler, book, mem, _, _ := schedulerFixture(t)

	cfg := eligibilityConfig()
	cfg.TradingMode = models.ModeAdvisorAssisted
	cfg.AutoExecute = true
	cfg.Advisor.MinProfitPct = 0.00001
	cfg.Advisor.MinConfidence = 0.5
	cfg.Advisor.PreferredPairs = nil
	cfg.Advisor.TradingHoursStart = 0
	cfg.Advisor.TradingHoursEnd = 23
	require.NoError(t, mem.InsertConfig(context.Background(), cfg))

	require.NoError(t, scheduler.RunCycle(context.Background()))

	// The unconfigured advisor's mock executes any opportunity above 0.01
	// percent profit; the fixed spreads sit well above that.
	trades, err := mem.TradesByConfig(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, trades)

	for _, opp := range book.Snapshot() {
		if opp.Executed {
			assert.Equal(t, ExecutionAdvisorAutoTag, opp.ExecutionDetails.ExecutionType)
		}
	}
}

func TestSchedulerStartStop(t *testing.T) {
	scheduler, _, _, _, _ := schedulerFixture(t)

	scheduler.Start(context.Background())
	assert.True(t, scheduler.Status().Running)
	scheduler.Start(context.Background()) // second Start is a no-op

	scheduler.Stop()
	assert.False(t, scheduler.Status().Running)
	scheduler.Stop() // second Stop is a no-op
}
