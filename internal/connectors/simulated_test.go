package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finexa/fxarb/internal/credentials"
	"github.com/finexa/fxarb/internal/models"
)

var testSnapshot = models.RateSnapshot{
	"OANDA": {"EUR/USD": 1.0850, "GBP/USD": 1.2650},
	"FXCM":  {"EUR/USD": 1.0855},
}

func TestValidateAcceptsCompleteFields(t *testing.T) {
	conn := New("OANDA", credentials.Fields{
		"api_key":    "abcd1234",
		"account_id": "001-001-1234567-001",
	}, testSnapshot)

	result, err := conn.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "OANDA", result.Broker)
	assert.False(t, result.CheckedAt.IsZero())
}

func TestValidateRejectsMissingFields(t *testing.T) {
	conn := New("OANDA", credentials.Fields{"api_key": "abcd1234"}, testSnapshot)

	result, err := conn.Validate(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "account_id")
}

func TestValidateHonorsCancellation(t *testing.T) {
	conn := New("OANDA", credentials.Fields{}, testSnapshot)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := conn.Validate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccountInfoDeterministic(t *testing.T) {
	fields := credentials.Fields{"api_key": "abcd1234", "account_id": "001"}
	conn := New("OANDA", fields, testSnapshot)

	first, err := conn.AccountInfo(context.Background())
	require.NoError(t, err)
	second, err := conn.AccountInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Balance, second.Balance)
	assert.Equal(t, "001", first.AccountID)
	assert.Equal(t, "USD", first.Currency)
	assert.GreaterOrEqual(t, first.Balance, 10000.0)
}

func TestAccountInfoFallbackAccountID(t *testing.T) {
	conn := New("Plus500", credentials.Fields{"api_key": "abcd1234"}, testSnapshot)

	info, err := conn.AccountInfo(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^SIM-\d{6}$`, info.AccountID)
}

func TestMarketDataServesBrokerQuotes(t *testing.T) {
	conn := New("OANDA", credentials.Fields{}, testSnapshot)

	quotes, err := conn.MarketData(context.Background(), []string{"EUR/USD", "USD/JPY"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"EUR/USD": 1.0850}, quotes, "unquoted pairs are omitted")
}

func TestMarketDataFallsBackToFirstBroker(t *testing.T) {
	conn := New("Unknown Broker", credentials.Fields{}, testSnapshot)

	quotes, err := conn.MarketData(context.Background(), []string{"EUR/USD"})
	require.NoError(t, err)
	// Brokers() sorts, so FXCM quotes stand in.
	assert.Equal(t, map[string]float64{"EUR/USD": 1.0855}, quotes)
}
