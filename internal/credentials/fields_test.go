package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredFieldsKnownBrokers(t *testing.T) {
	assert.Equal(t, []string{"account_id", "api_key"}, RequiredFields("OANDA"))
	assert.Equal(t, []string{"account_id", "password", "username"}, RequiredFields("Interactive Brokers"))
	assert.Equal(t, []string{"login", "password", "server"}, RequiredFields("MetaTrader"))
}

func TestRequiredFieldsUnknownBrokerFallsBack(t *testing.T) {
	assert.Equal(t, []string{"api_key"}, RequiredFields("Some New Broker"))
}

func TestValidateMissingFields(t *testing.T) {
	err := Validate("OANDA", Fields{"api_key": "abcd"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "account_id")
	}

	err = Validate("OANDA", Fields{"api_key": "abcd", "account_id": "   "})
	assert.Error(t, err, "whitespace-only values count as missing")

	assert.NoError(t, Validate("OANDA", Fields{"api_key": "abcd", "account_id": "001"}))
}

func TestMask(t *testing.T) {
	masked := Mask(Fields{
		"api_key":    "abcd1234efgh5678",
		"account_id": "001",
	})
	assert.Equal(t, "****5678", masked["api_key"])
	assert.Equal(t, "****", masked["account_id"], "short values are fully masked")
}
