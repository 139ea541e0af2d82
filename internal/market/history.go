package market

import "sync"

// defaultHistoryDepth bounds the per-pair mid-rate history kept in memory.
const defaultHistoryDepth = 256

// History is a bounded per-pair series of mid rates, oldest first.
type History struct {
	mu    sync.RWMutex
	depth int
	data  map[string][]float64
}

func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = defaultHistoryDepth
	}
	return &History{depth: depth, data: make(map[string][]float64)}
}

// Append records one observation for the pair, discarding the oldest once
// the depth bound is hit.
func (h *History) Append(pair string, rate float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	series := append(h.data[pair], rate)
	if len(series) > h.depth {
		series = series[len(series)-h.depth:]
	}
	h.data[pair] = series
}

// Prices returns a copy of the recorded series for the pair, oldest first.
func (h *History) Prices(pair string) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]float64(nil), h.data[pair]...)
}

// Pairs returns the pairs with at least one observation.
func (h *History) Pairs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pairs := make([]string, 0, len(h.data))
	for pair := range h.data {
		pairs = append(pairs, pair)
	}
	return pairs
}
