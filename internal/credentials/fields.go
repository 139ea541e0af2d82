// Package credentials stores broker API credentials encrypted at rest and
// validates their shape per broker. Plaintext credential fields never leave
// this package except to the connector performing a validation call.
package credentials

import (
	"fmt"
	"sort"
	"strings"
)

// Fields is a decrypted credential document, field name to value.
type Fields map[string]string

// requiredFields maps a normalized broker name to the credential fields it
// needs. Unknown brokers fall back to a generic api_key requirement.
var requiredFields = map[string][]string{
	"oanda":               {"api_key", "account_id"},
	"interactive brokers": {"username", "password", "account_id"},
	"fxcm":                {"api_key", "account_id"},
	"xm":                  {"login", "password", "server"},
	"metatrader":          {"login", "password", "server"},
	"plus500":             {"api_key"},
}

var genericFields = []string{"api_key"}

// RequiredFields returns the credential fields a broker needs, sorted.
func RequiredFields(broker string) []string {
	fields, ok := requiredFields[normalize(broker)]
	if !ok {
		fields = genericFields
	}
	out := append([]string(nil), fields...)
	sort.Strings(out)
	return out
}

// Validate checks that every required field is present and non-empty.
func Validate(broker string, fields Fields) error {
	var missing []string
	for _, name := range RequiredFields(broker) {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credential fields for %s: %s", broker, strings.Join(missing, ", "))
	}
	return nil
}

// Mask renders fields safe for API responses: every value is reduced to its
// last four characters.
func Mask(fields Fields) map[string]string {
	masked := make(map[string]string, len(fields))
	for name, value := range fields {
		masked[name] = maskValue(value)
	}
	return masked
}

func maskValue(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

func normalize(broker string) string {
	return strings.ToLower(strings.TrimSpace(broker))
}
