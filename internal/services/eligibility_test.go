package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finexa/fxarb/internal/models"
)

func eligibilityConfig() *models.TradingConfig {
	cfg := &models.TradingConfig{
		ID:          "cfg-1",
		TradingMode: models.ModeAutonomous,
		AutoExecute: true,
		Sizing: models.ManualSizing{
			StartingCapital: 10000,
			BaseCurrency:    "USD",
			RiskTolerance:   0.1,
			MaxPositionSize: 0.1,
		},
	}
	cfg.ApplyDefaults()
	cfg.Autonomous.TradeSpatial = true
	cfg.Autonomous.TradeTriangular = true
	return cfg
}

func TestAutonomousEligibleThresholds(t *testing.T) {
	cfg := eligibilityConfig()
	cfg.Autonomous.MinProfitPct = 0.005 // fraction, so 0.5 percent

	opp := testOpportunity("a", 0.6)
	assert.True(t, AutonomousEligible(opp, cfg))

	opp.ProfitPercentage = 0.4
	assert.False(t, AutonomousEligible(opp, cfg))

	opp.ProfitPercentage = 0.6
	opp.ConfidenceScore = cfg.Autonomous.MinConfidence - 0.01
	assert.False(t, AutonomousEligible(opp, cfg))
}

func TestAutonomousEligibleKindToggles(t *testing.T) {
	cfg := eligibilityConfig()
	cfg.Autonomous.MinProfitPct = 0.0001

	opp := testOpportunity("a", 0.6)
	cfg.Autonomous.TradeSpatial = false
	assert.False(t, AutonomousEligible(opp, cfg))

	cfg.Autonomous.TradeSpatial = true
	opp.Kind = models.KindTriangular
	cfg.Autonomous.TradeTriangular = false
	assert.False(t, AutonomousEligible(opp, cfg))
}

func TestAutonomousEligiblePairAndBrokerFilters(t *testing.T) {
	cfg := eligibilityConfig()
	cfg.Autonomous.MinProfitPct = 0.0001

	opp := testOpportunity("a", 0.6)
	cfg.Autonomous.PreferredPairs = []string{"GBP/USD"}
	assert.False(t, AutonomousEligible(opp, cfg))

	cfg.Autonomous.PreferredPairs = []string{"EUR/USD"}
	assert.True(t, AutonomousEligible(opp, cfg))

	cfg.Autonomous.ExcludedBrokers = []string{"Beta"}
	assert.False(t, AutonomousEligible(opp, cfg))

	// Empty preferred list admits every pair.
	cfg.Autonomous.PreferredPairs = nil
	cfg.Autonomous.ExcludedBrokers = nil
	assert.True(t, AutonomousEligible(opp, cfg))
}

func TestAutonomousEligibleRejectsExecuted(t *testing.T) {
	cfg := eligibilityConfig()
	cfg.Autonomous.MinProfitPct = 0.0001

	opp := testOpportunity("a", 0.6)
	opp.Executed = true
	assert.False(t, AutonomousEligible(opp, cfg))
}

func TestTighteningThresholdsNeverAdmitsMore(t *testing.T) {
	cfg := eligibilityConfig()
	cfg.Autonomous.MinProfitPct = 0.001

	opps := []*models.ArbitrageOpportunity{
		testOpportunity("a", 0.05),
		testOpportunity("b", 0.2),
		testOpportunity("c", 0.9),
	}

	loose := filterEligible(opps, cfg, AutonomousEligible)

	tight := eligibilityConfig()
	tight.Autonomous.MinProfitPct = 0.005
	tightSet := filterEligible(opps, tight, AutonomousEligible)

	assert.LessOrEqual(t, len(tightSet), len(loose))
	for _, opp := range tightSet {
		assert.Contains(t, loose, opp)
	}
}

func TestAdvisorEligibleIgnoresBrokerExclusions(t *testing.T) {
	cfg := eligibilityConfig()
	cfg.TradingMode = models.ModeAdvisorAssisted
	cfg.Advisor.MinProfitPct = 0.0001
	cfg.Autonomous.ExcludedBrokers = []string{"Beta"}

	opp := testOpportunity("a", 0.6)
	assert.True(t, AdvisorEligible(opp, cfg))
}

func TestAdvisorEligiblePreservesRankOrder(t *testing.T) {
	cfg := eligibilityConfig()
	cfg.Advisor.MinProfitPct = 0.001

	opps := []*models.ArbitrageOpportunity{
		testOpportunity("hi", 0.9),
		testOpportunity("lo", 0.2),
	}
	eligible := filterEligible(opps, cfg, AdvisorEligible)
	if assert.Len(t, eligible, 2) {
		assert.Equal(t, "hi", eligible[0].ID)
		assert.Equal(t, "lo", eligible[1].ID)
	}
}
