package credentials

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher("passphrase")
	require.NoError(t, err)

	payload, err := cipher.Encrypt([]byte(`{"api_key":"secret"}`))
	require.NoError(t, err)
	assert.NotContains(t, payload, "secret")

	plaintext, err := cipher.Decrypt(payload)
	require.NoError(t, err)
	assert.Equal(t, `{"api_key":"secret"}`, string(plaintext))
}

func TestCipherRejectsEmptyKey(t *testing.T) {
	_, err := NewCipher("")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestCipherNoncesDiffer(t *testing.T) {
	cipher, err := NewCipher("passphrase")
	require.NoError(t, err)

	first, err := cipher.Encrypt([]byte("same input"))
	require.NoError(t, err)
	second, err := cipher.Encrypt([]byte("same input"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCipherWrongKeyFails(t *testing.T) {
	cipher, err := NewCipher("passphrase")
	require.NoError(t, err)
	payload, err := cipher.Encrypt([]byte("secret"))
	require.NoError(t, err)

	other, err := NewCipher("different")
	require.NoError(t, err)
	_, err = other.Decrypt(payload)
	assert.Error(t, err)
}

func TestCipherTamperedPayloadFails(t *testing.T) {
	cipher, err := NewCipher("passphrase")
	require.NoError(t, err)
	payload, err := cipher.Encrypt([]byte("secret"))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = cipher.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestCipherMalformedPayloads(t *testing.T) {
	cipher, err := NewCipher("passphrase")
	require.NoError(t, err)

	_, err = cipher.Decrypt("not base64!!!")
	assert.Error(t, err)

	_, err = cipher.Decrypt(base64.StdEncoding.EncodeToString([]byte("tiny")))
	assert.Error(t, err, "payload shorter than the nonce")
}
