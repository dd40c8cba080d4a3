package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := SealingKey("app-secret")

	sealed, err := Encrypt([]byte("api-secret-value"), key)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "api-secret-value")

	opened, err := Decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "api-secret-value", opened)
}

func TestDecryptWithWrongKey(t *testing.T) {
	sealed, err := Encrypt([]byte("value"), SealingKey("one"))
	require.NoError(t, err)

	_, err = Decrypt(sealed, SealingKey("two"))
	assert.Error(t, err)
}

func TestDecryptShortCiphertext(t *testing.T) {
	_, err := Decrypt("AAAA", SealingKey("k"))
	assert.EqualError(t, err, "ciphertext too short")
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "feedqueue", claims.Issuer)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("secret", "alice", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken("other", token)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", "alice", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", expired)
	assert.Error(t, err)
}

func TestGenerateRandomKey(t *testing.T) {
	a, err := GenerateRandomKey(32)
	require.NoError(t, err)
	b, err := GenerateRandomKey(32)
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
