package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/finexa/fxarb/internal/connectors"
	"github.com/finexa/fxarb/internal/credentials"
	"github.com/finexa/fxarb/internal/market"
	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

// CredentialView is the API-safe rendering of a stored credential: field
// values are masked, the encrypted payload never leaves the store.
type CredentialView struct {
	ID            string            `json:"id"`
	BrokerName    string            `json:"broker_name"`
	Label         string            `json:"label"`
	Fields        map[string]string `json:"fields"`
	Status        string            `json:"status"`
	LastValidated *time.Time        `json:"last_validated,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CredentialService owns the broker credential lifecycle: encrypt on write,
// decrypt only for validation calls, mask for every read.
type CredentialService struct {
	store  store.Store
	cipher *credentials.Cipher
	rates  market.RateSource
	log    *logrus.Logger
}

func NewCredentialService(s store.Store, cipher *credentials.Cipher, rates market.RateSource, log *logrus.Logger) *CredentialService {
	if log == nil {
		log = logrus.New()
	}
	return &CredentialService{store: s, cipher: cipher, rates: rates, log: log}
}

// Create validates the field shape, encrypts the document and stores it with
// status unvalidated.
func (cs *CredentialService) Create(ctx context.Context, broker, label string, fields credentials.Fields) (*CredentialView, error) {
	if cs.cipher == nil {
		return nil, credentials.ErrNoKey
	}
	if err := credentials.Validate(broker, fields); err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal credential fields: %w", err)
	}
	payload, err := cs.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt credential: %w", err)
	}

	cred := &models.BrokerCredential{
		ID:         uuid.New().String(),
		BrokerName: broker,
		Label:      label,
		Payload:    payload,
		Status:     models.CredentialUnvalidated,
		CreatedAt:  time.Now().UTC(),
	}
	if err := cs.store.InsertCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	cs.log.WithFields(logrus.Fields{
		"credential_id": cred.ID,
		"broker":        broker,
	}).Info("Stored broker credential")

	return cs.view(cred, fields), nil
}

// Validate decrypts the credential and runs it through the broker connector.
// The connector call is bounded by the validation timeout.
func (cs *CredentialService) Validate(ctx context.Context, id string) (*connectors.ValidationResult, error) {
	cred, err := cs.store.GetCredential(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := cs.decrypt(cred)
	if err != nil {
		return nil, err
	}

	conn := connectors.New(cred.BrokerName, fields, cs.rates.Snapshot())
	callCtx, cancel := context.WithTimeout(ctx, connectors.ValidationTimeout)
	defer cancel()

	result, err := conn.Validate(callCtx)
	if err != nil {
		return nil, fmt.Errorf("broker validation call: %w", err)
	}

	status := models.CredentialInvalid
	if result.Valid {
		status = models.CredentialValid
	}
	if err := cs.store.UpdateCredentialStatus(ctx, id, status, result.CheckedAt); err != nil {
		return nil, fmt.Errorf("update credential status: %w", err)
	}
	return result, nil
}

// AccountInfo fetches simulated account state through the credential's
// connector.
func (cs *CredentialService) AccountInfo(ctx context.Context, id string) (*connectors.AccountInfo, error) {
	cred, err := cs.store.GetCredential(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := cs.decrypt(cred)
	if err != nil {
		return nil, err
	}

	conn := connectors.New(cred.BrokerName, fields, cs.rates.Snapshot())
	callCtx, cancel := context.WithTimeout(ctx, connectors.ValidationTimeout)
	defer cancel()
	return conn.AccountInfo(callCtx)
}

// Get returns one masked credential.
func (cs *CredentialService) Get(ctx context.Context, id string) (*CredentialView, error) {
	cred, err := cs.store.GetCredential(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := cs.decrypt(cred)
	if err != nil {
		return nil, err
	}
	return cs.view(cred, fields), nil
}

// List returns every credential, masked.
func (cs *CredentialService) List(ctx context.Context) ([]*CredentialView, error) {
	creds, err := cs.store.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*CredentialView, 0, len(creds))
	for _, cred := range creds {
		fields, err := cs.decrypt(cred)
		if err != nil {
			cs.log.WithError(err).WithField("credential_id", cred.ID).Warn("Skipping undecryptable credential")
			continue
		}
		out = append(out, cs.view(cred, fields))
	}
	return out, nil
}

// Delete removes a credential.
func (cs *CredentialService) Delete(ctx context.Context, id string) error {
	return cs.store.DeleteCredential(ctx, id)
}

func (cs *CredentialService) decrypt(cred *models.BrokerCredential) (credentials.Fields, error) {
	if cs.cipher == nil {
		return nil, credentials.ErrNoKey
	}
	plaintext, err := cs.cipher.Decrypt(cred.Payload)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential %s: %w", cred.ID, err)
	}
	var fields credentials.Fields
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal credential %s: %w", cred.ID, err)
	}
	return fields, nil
}

func (cs *CredentialService) view(cred *models.BrokerCredential, fields credentials.Fields) *CredentialView {
	return &CredentialView{
		ID:            cred.ID,
		BrokerName:    cred.BrokerName,
		Label:         cred.Label,
		Fields:        credentials.Mask(fields),
		Status:        cred.Status,
		LastValidated: cred.LastValidated,
		CreatedAt:     cred.CreatedAt,
	}
}
