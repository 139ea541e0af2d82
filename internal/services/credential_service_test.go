package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finexa/fxarb/internal/credentials"
	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

func credentialFixture(t *testing.T) (*CredentialService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	cipher, err := credentials.NewCipher("test-credential-key")
	require.NoError(t, err)
	rates := &fixedRates{snapshot: models.RateSnapshot{
		"OANDA": {"EUR/USD": 1.0850},
	}}
	return NewCredentialService(mem, cipher, rates, nil), mem
}

func TestCredentialCreateMasksFields(t *testing.T) {
	svc, mem := credentialFixture(t)

	view, err := svc.Create(context.Background(), "OANDA", "demo account", credentials.Fields{
		"api_key":    "abcd1234efgh5678",
		"account_id": "001-001-1234567-001",
	})
	require.NoError(t, err)

	assert.Equal(t, "OANDA", view.BrokerName)
	assert.Equal(t, models.CredentialUnvalidated, view.Status)
	assert.Equal(t, "****5678", view.Fields["api_key"])

	// The stored payload is ciphertext, not the raw fields.
	stored, err := mem.GetCredential(context.Background(), view.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.Payload, "abcd1234efgh5678")
}

func TestCredentialCreateRejectsMissingFields(t *testing.T) {
	svc, _ := credentialFixture(t)

	_, err := svc.Create(context.Background(), "OANDA", "", credentials.Fields{
		"api_key": "abcd1234",
	})
	assert.Error(t, err, "OANDA requires an account_id")
}

func TestCredentialCreateWithoutKey(t *testing.T) {
	svc := NewCredentialService(store.NewMemory(), nil, &fixedRates{}, nil)

	_, err := svc.Create(context.Background(), "OANDA", "", credentials.Fields{
		"api_key":    "abcd1234",
		"account_id": "001",
	})
	assert.ErrorIs(t, err, credentials.ErrNoKey)
}

func TestCredentialValidateRoundTrip(t *testing.T) {
	svc, mem := credentialFixture(t)

	view, err := svc.Create(context.Background(), "OANDA", "", credentials.Fields{
		"api_key":    "abcd1234efgh5678",
		"account_id": "001-001-1234567-001",
	})
	require.NoError(t, err)

	result, err := svc.Validate(context.Background(), view.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	stored, err := mem.GetCredential(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CredentialValid, stored.Status)
	assert.NotNil(t, stored.LastValidated)
}

func TestCredentialGetAndList(t *testing.T) {
	svc, _ := credentialFixture(t)

	view, err := svc.Create(context.Background(), "OANDA", "primary", credentials.Fields{
		"api_key":    "abcd1234efgh5678",
		"account_id": "001-001-1234567-001",
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "primary", got.Label)
	assert.Equal(t, "****5678", got.Fields["api_key"])

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCredentialDelete(t *testing.T) {
	svc, _ := credentialFixture(t)

	view, err := svc.Create(context.Background(), "OANDA", "", credentials.Fields{
		"api_key":    "abcd1234efgh5678",
		"account_id": "001-001-1234567-001",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), view.ID))

	_, err = svc.Get(context.Background(), view.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentialGetUnknown(t *testing.T) {
	svc, _ := credentialFixture(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
