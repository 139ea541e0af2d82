package connectors

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/finexa/fxarb/internal/credentials"
	"github.com/finexa/fxarb/internal/models"
)

// simulatedLatency approximates one broker round trip.
const simulatedLatency = 25 * time.Millisecond

// simulated answers for any broker. Validation checks credential shape only;
// account and market data are synthesized deterministically from the broker
// name and the current rate snapshot.
type simulated struct {
	broker string
	fields credentials.Fields
	rates  models.RateSnapshot
}

func (s *simulated) Name() string {
	return s.broker
}

func (s *simulated) Validate(ctx context.Context) (*ValidationResult, error) {
	if err := s.roundTrip(ctx); err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Broker:    s.broker,
		CheckedAt: time.Now().UTC(),
	}
	if err := credentials.Validate(s.broker, s.fields); err != nil {
		result.Valid = false
		result.Message = err.Error()
		return result, nil
	}
	result.Valid = true
	result.Message = fmt.Sprintf("simulated validation against %s succeeded", s.broker)
	return result, nil
}

func (s *simulated) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	if err := s.roundTrip(ctx); err != nil {
		return nil, err
	}

	accountID := s.fields["account_id"]
	if accountID == "" {
		accountID = s.fields["login"]
	}
	if accountID == "" {
		accountID = "SIM-" + fmt.Sprintf("%06d", seed(s.broker)%1000000)
	}

	return &AccountInfo{
		Broker:    s.broker,
		AccountID: accountID,
		Balance:   10000 + float64(seed(s.broker)%90000),
		Currency:  "USD",
		Leverage:  30,
	}, nil
}

func (s *simulated) MarketData(ctx context.Context, pairs []string) (map[string]float64, error) {
	if err := s.roundTrip(ctx); err != nil {
		return nil, err
	}

	quotes := s.rates[s.broker]
	if quotes == nil {
		// Broker absent from the snapshot: serve the first quoting broker's
		// rates so the call still answers.
		for _, broker := range s.rates.Brokers() {
			quotes = s.rates[broker]
			break
		}
	}

	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		if rate, ok := quotes[pair]; ok {
			out[pair] = rate
		}
	}
	return out, nil
}

// roundTrip simulates network latency while honoring cancellation.
func (s *simulated) roundTrip(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(simulatedLatency):
		return nil
	}
}

func seed(broker string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(broker))
	return h.Sum32()
}
