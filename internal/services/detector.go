package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/finexa/fxarb/internal/models"
)

// Detection heuristics. The confidence scores are fixed per kind, not
// computed from data.
const (
	// SpatialMinProfitPct is the minimum spread, in percent of the lower
	// quote, for a spatial candidate to be emitted.
	SpatialMinProfitPct = 0.001
	// TriangularMinProfitPct is the minimum cross-rate discrepancy, in
	// percent of the quoted comparison rate.
	TriangularMinProfitPct = 0.002

	SpatialConfidence    = 0.85
	TriangularConfidence = 0.75

	// ReferenceNotional is the notional the detector's profit figures are
	// scaled against. Execution later rescales profit linearly to the actual
	// position size.
	ReferenceNotional = 10000

	// MaxOpportunities bounds the ranked list retained after each cycle.
	MaxOpportunities = 20
)

// MajorPairs is the fixed reference set scanned for spatial arbitrage.
var MajorPairs = []string{
	"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "USD/CHF",
	"USD/CAD", "NZD/USD", "EUR/GBP", "EUR/JPY", "GBP/JPY",
	"AUD/JPY", "CHF/JPY", "CAD/JPY",
}

// TriangularRelation ties two legs to a directly quoted comparison pair.
// When Divide is false the implied rate is legA*legB, otherwise legA/legB.
type TriangularRelation struct {
	LegA       string
	LegB       string
	Comparison string
	Divide     bool
}

// TriangularRelations is the fixed set of evaluated cross-rate identities.
// Broader pair coverage is an open question; these three are the floor.
var TriangularRelations = []TriangularRelation{
	{LegA: "EUR/USD", LegB: "USD/JPY", Comparison: "EUR/JPY"},
	{LegA: "GBP/USD", LegB: "USD/JPY", Comparison: "GBP/JPY"},
	{LegA: "EUR/USD", LegB: "EUR/GBP", Comparison: "GBP/USD", Divide: true},
}

// DetectSpatial scans the snapshot for the same pair being quoted at
// different rates across brokers. For each major pair quoted by at least two
// brokers it compares the extreme quotes; ties on rate value are broken by
// sorted broker-name order, which makes detection deterministic for a given
// snapshot.
func DetectSpatial(snapshot models.RateSnapshot) []*models.ArbitrageOpportunity {
	var opportunities []*models.ArbitrageOpportunity
	brokers := snapshot.Brokers()

	for _, pair := range MajorPairs {
		var (
			quoted               int
			minBroker, maxBroker string
			minRate, maxRate     float64
		)
		for _, broker := range brokers {
			rate, ok := snapshot[broker][pair]
			if !ok {
				continue
			}
			if quoted == 0 || rate < minRate {
				minBroker, minRate = broker, rate
			}
			if quoted == 0 || rate > maxRate {
				maxBroker, maxRate = broker, rate
			}
			quoted++
		}
		if quoted < 2 {
			continue
		}

		profitPotential := maxRate - minRate
		profitPercentage := profitPotential / minRate * 100
		if profitPercentage <= SpatialMinProfitPct {
			continue
		}

		opportunities = append(opportunities, &models.ArbitrageOpportunity{
			ID:               uuid.New().String(),
			Kind:             models.KindSpatial,
			CurrencyPairs:    []string{pair},
			Brokers:          []string{minBroker, maxBroker},
			BuyBroker:        minBroker,
			SellBroker:       maxBroker,
			BuyRate:          minRate,
			SellRate:         maxRate,
			ProfitPotential:  profitPotential,
			ProfitPercentage: profitPercentage,
			PositionSize:     ReferenceNotional,
			ConfidenceScore:  SpatialConfidence,
			DetectedAt:       time.Now().UTC(),
		})
	}

	return opportunities
}

// DetectTriangular evaluates the fixed cross-rate identities per broker that
// quotes all three pairs of a relation.
func DetectTriangular(snapshot models.RateSnapshot) []*models.ArbitrageOpportunity {
	var opportunities []*models.ArbitrageOpportunity

	for _, broker := range snapshot.Brokers() {
		quotes := snapshot[broker]
		for _, rel := range TriangularRelations {
			legA, okA := quotes[rel.LegA]
			legB, okB := quotes[rel.LegB]
			actual, okC := quotes[rel.Comparison]
			if !okA || !okB || !okC {
				continue
			}

			calculated := legA * legB
			if rel.Divide {
				calculated = legA / legB
			}

			discrepancy := calculated - actual
			if discrepancy < 0 {
				discrepancy = -discrepancy
			}
			profitPercentage := discrepancy / actual * 100
			if profitPercentage <= TriangularMinProfitPct {
				continue
			}

			opportunities = append(opportunities, &models.ArbitrageOpportunity{
				ID:               uuid.New().String(),
				Kind:             models.KindTriangular,
				CurrencyPairs:    []string{rel.LegA, rel.LegB, rel.Comparison},
				Brokers:          []string{broker},
				ProfitPotential:  discrepancy,
				ProfitPercentage: profitPercentage,
				PositionSize:     ReferenceNotional,
				ConfidenceScore:  TriangularConfidence,
				DetectedAt:       time.Now().UTC(),
			})
		}
	}

	return opportunities
}

// Rank orders opportunities by profit percentage, highest first, and keeps
// the top MaxOpportunities. Older entries fall off; they are discarded, not
// archived.
func Rank(opportunities []*models.ArbitrageOpportunity) []*models.ArbitrageOpportunity {
	ranked := append([]*models.ArbitrageOpportunity(nil), opportunities...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ProfitPercentage > ranked[j].ProfitPercentage
	})
	if len(ranked) > MaxOpportunities {
		ranked = ranked[:MaxOpportunities]
	}
	return ranked
}

// Detect runs both detectors over the snapshot and returns the ranked union.
func Detect(snapshot models.RateSnapshot) []*models.ArbitrageOpportunity {
	spatial := DetectSpatial(snapshot)
	triangular := DetectTriangular(snapshot)
	return Rank(append(spatial, triangular...))
}

// DescribeRelation renders a relation for logs and advisor prompts.
func DescribeRelation(rel TriangularRelation) string {
	op := "*"
	if rel.Divide {
		op = "/"
	}
	return fmt.Sprintf("%s %s %s vs %s", rel.LegA, op, rel.LegB, rel.Comparison)
}
