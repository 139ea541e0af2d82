package market

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/finexa/fxarb/internal/models"
)

// RateSource supplies a rate snapshot for one instant in time.
type RateSource interface {
	Snapshot() models.RateSnapshot
}

// Brokers is the fixed set of simulated venues. Spatial detection needs at
// least two of them quoting the same pair.
var Brokers = []string{
	"OANDA", "Interactive Brokers", "FXCM", "XM", "MetaTrader", "Plus500",
}

// baseRates are the anchor quotes the simulator perturbs. Not real market
// data.
var baseRates = map[string]float64{
	"EUR/USD": 1.0850,
	"GBP/USD": 1.2650,
	"USD/JPY": 155.50,
	"AUD/USD": 0.6320,
	"USD/CHF": 0.9180,
	"USD/CAD": 1.4150,
	"NZD/USD": 0.5680,
	"EUR/GBP": 0.8580,
	"EUR/JPY": 168.70,
	"GBP/JPY": 196.60,
	"AUD/JPY": 98.30,
	"CHF/JPY": 169.40,
	"CAD/JPY": 109.90,
}

// maxVariation bounds the per-broker perturbation applied to each base rate.
const maxVariation = 0.0005

// Simulator produces synthetic multi-broker quotes by perturbing fixed base
// rates. It also records a per-pair mid-rate history for the analysis
// service.
type Simulator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	history *History
}

func NewSimulator() *Simulator {
	return NewSimulatorWithSeed(time.Now().UnixNano())
}

// NewSimulatorWithSeed builds a simulator with a deterministic quote stream.
func NewSimulatorWithSeed(seed int64) *Simulator {
	return &Simulator{
		rng:     rand.New(rand.NewSource(seed)),
		history: NewHistory(defaultHistoryDepth),
	}
}

// Snapshot returns one instant of per-broker quotes. Every call records the
// cross-broker mid rate of each pair into the history.
func (s *Simulator) Snapshot() models.RateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(models.RateSnapshot, len(Brokers))
	mids := make(map[string]float64, len(baseRates))
	for _, broker := range Brokers {
		quotes := make(map[string]float64, len(baseRates))
		for pair, base := range baseRates {
			variation := (s.rng.Float64()*2 - 1) * maxVariation
			rate := round5(base + variation)
			quotes[pair] = rate
			mids[pair] += rate
		}
		snapshot[broker] = quotes
	}

	for pair, sum := range mids {
		s.history.Append(pair, sum/float64(len(Brokers)))
	}

	return snapshot
}

// History exposes the recorded mid-rate history.
func (s *Simulator) History() *History {
	return s.history
}

// Pairs returns the pairs the simulator quotes.
func (s *Simulator) Pairs() []string {
	pairs := make([]string, 0, len(baseRates))
	for pair := range baseRates {
		pairs = append(pairs, pair)
	}
	return pairs
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
