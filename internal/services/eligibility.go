package services

import "github.com/finexa/fxarb/internal/models"

// AutonomousEligible reports whether the opportunity qualifies for the
// autonomous policy under the given config. Pure predicate: it never mutates
// the opportunity or config.
func AutonomousEligible(opp *models.ArbitrageOpportunity, cfg *models.TradingConfig) bool {
	if opp.ProfitPercentage/100 < cfg.Autonomous.MinProfitPct {
		return false
	}
	if opp.ConfidenceScore < cfg.Autonomous.MinConfidence {
		return false
	}
	if opp.Kind == models.KindSpatial && !cfg.Autonomous.TradeSpatial {
		return false
	}
	if opp.Kind == models.KindTriangular && !cfg.Autonomous.TradeTriangular {
		return false
	}
	if len(cfg.Autonomous.PreferredPairs) > 0 && !opp.InvolvesPair(cfg.Autonomous.PreferredPairs) {
		return false
	}
	if opp.InvolvesBroker(cfg.Autonomous.ExcludedBrokers) {
		return false
	}
	return !opp.Executed
}

// AdvisorEligible reports whether the opportunity passes the advisor
// policy's basic criteria. There is no broker exclusion or kind toggle for
// this policy.
func AdvisorEligible(opp *models.ArbitrageOpportunity, cfg *models.TradingConfig) bool {
	if opp.ProfitPercentage/100 < cfg.Advisor.MinProfitPct {
		return false
	}
	if opp.ConfidenceScore < cfg.Advisor.MinConfidence {
		return false
	}
	if len(cfg.Advisor.PreferredPairs) > 0 && !opp.InvolvesPair(cfg.Advisor.PreferredPairs) {
		return false
	}
	return !opp.Executed
}

// filterEligible returns the opportunities passing the predicate, preserving
// rank order.
func filterEligible(opps []*models.ArbitrageOpportunity, cfg *models.TradingConfig,
	eligible func(*models.ArbitrageOpportunity, *models.TradingConfig) bool) []*models.ArbitrageOpportunity {
	var out []*models.ArbitrageOpportunity
	for _, opp := range opps {
		if eligible(opp, cfg) {
			out = append(out, opp)
		}
	}
	return out
}
