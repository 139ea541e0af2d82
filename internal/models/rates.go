package models

import "sort"

// RateSnapshot maps broker name -> currency pair -> quoted rate for a single
// instant. Snapshots are ephemeral: one is produced per scan cycle and never
// persisted.
type RateSnapshot map[string]map[string]float64

// Brokers returns the broker names in the snapshot in sorted order. All
// iteration over a snapshot goes through this so that tie-breaks in detection
// are deterministic.
func (s RateSnapshot) Brokers() []string {
	brokers := make([]string, 0, len(s))
	for broker := range s {
		brokers = append(brokers, broker)
	}
	sort.Strings(brokers)
	return brokers
}

// RateFor returns the first quoted rate for the pair, scanning brokers in
// sorted order. The broker source is not pinned to any position's own broker.
func (s RateSnapshot) RateFor(pair string) (broker string, rate float64, ok bool) {
	for _, b := range s.Brokers() {
		if r, found := s[b][pair]; found {
			return b, r, true
		}
	}
	return "", 0, false
}
