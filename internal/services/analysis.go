package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"

	"github.com/finexa/fxarb/internal/market"
)

// Indicator periods used for the advisor's market context.
const (
	smaPeriod = 10
	emaPeriod = 10
	rsiPeriod = 14
)

// PairAnalysis summarizes the indicator state of one currency pair.
type PairAnalysis struct {
	Pair      string    `json:"pair"`
	LastRate  float64   `json:"last_rate"`
	SMA       float64   `json:"sma"`
	EMA       float64   `json:"ema"`
	RSI       float64   `json:"rsi"`
	Trend     string    `json:"trend"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalysisService computes simple technical indicators over the simulator's
// mid-rate history. The output is context for the advisor and the
// market-analysis endpoint, not a trading signal.
type AnalysisService struct {
	history *market.History
}

func NewAnalysisService(history *market.History) *AnalysisService {
	return &AnalysisService{history: history}
}

// Analyze computes SMA, EMA and RSI for one pair. It returns an error while
// the history is still shorter than the longest indicator period.
func (s *AnalysisService) Analyze(pair string) (*PairAnalysis, error) {
	prices := s.history.Prices(pair)
	if len(prices) < rsiPeriod+1 {
		return nil, fmt.Errorf("insufficient history for %s: have %d observations", pair, len(prices))
	}

	sma := lastValue(helper.ChanToSlice(trend.NewSmaWithPeriod[float64](smaPeriod).Compute(helper.SliceToChan(prices))))
	ema := lastValue(helper.ChanToSlice(trend.NewEmaWithPeriod[float64](emaPeriod).Compute(helper.SliceToChan(prices))))
	rsi := lastValue(helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](rsiPeriod).Compute(helper.SliceToChan(prices))))

	last := prices[len(prices)-1]
	direction := "sideways"
	switch {
	case last > sma && rsi > 55:
		direction = "up"
	case last < sma && rsi < 45:
		direction = "down"
	}

	return &PairAnalysis{
		Pair:      pair,
		LastRate:  last,
		SMA:       sma,
		EMA:       ema,
		RSI:       rsi,
		Trend:     direction,
		Timestamp: time.Now().UTC(),
	}, nil
}

// AnalyzeAll runs Analyze over every pair with enough history, sorted by
// pair name.
func (s *AnalysisService) AnalyzeAll() []*PairAnalysis {
	pairs := s.history.Pairs()
	sort.Strings(pairs)
	var out []*PairAnalysis
	for _, pair := range pairs {
		analysis, err := s.Analyze(pair)
		if err != nil {
			continue
		}
		out = append(out, analysis)
	}
	return out
}

// Summary renders a one-line-per-pair digest for advisor prompts.
func (s *AnalysisService) Summary() string {
	analyses := s.AnalyzeAll()
	if len(analyses) == 0 {
		return "no indicator history yet"
	}
	lines := make([]string, 0, len(analyses))
	for _, a := range analyses {
		lines = append(lines, fmt.Sprintf("%s: rate=%.5f sma=%.5f rsi=%.1f trend=%s", a.Pair, a.LastRate, a.SMA, a.RSI, a.Trend))
	}
	return strings.Join(lines, "\n")
}

func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
