package models

import "time"

// Credential validation statuses.
const (
	CredentialUnvalidated = "unvalidated"
	CredentialValid       = "valid"
	CredentialInvalid     = "invalid"
)

// BrokerCredential is a stored set of broker credentials. Payload is the
// encrypted credential fields; plaintext never leaves the credentials
// package.
type BrokerCredential struct {
	ID            string     `json:"id" db:"id"`
	BrokerName    string     `json:"broker_name" db:"broker_name"`
	Label         string     `json:"label" db:"label"`
	Payload       string     `json:"-" db:"payload"`
	Status        string     `json:"status" db:"status"`
	LastValidated *time.Time `json:"last_validated,omitempty" db:"last_validated"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
