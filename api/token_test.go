package api

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aa/models"
)

func testAuthConfig(t *testing.T) AuthConfig {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return AuthConfig{
		PrivateKey:     key,
		ExpireDuration: time.Hour,
		Issuer:         "aa-test",
		Audience:       "aa-test",
	}
}

func TestJWTRoundtrip(t *testing.T) {
	config := testAuthConfig(t)
	user := models.User{ID: "0b4f1c1e-9f7e-4f46-9a00-c3a28c1f8f11", Name: "alice"}

	signed, err := SignJWT(user, config)
	require.NoError(t, err)

	claims, err := ParseAndValidateJWT(signed, config.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "aa-test", claims.Issuer)
}

func TestJWTRejectsWrongKey(t *testing.T) {
	config := testAuthConfig(t)
	signed, err := SignJWT(models.User{ID: "u", Name: "bob"}, config)
	require.NoError(t, err)

	other := testAuthConfig(t)
	_, err = ParseAndValidateJWT(signed, other.PrivateKey)
	assert.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	config := testAuthConfig(t)
	config.ExpireDuration = -time.Minute
	signed, err := SignJWT(models.User{ID: "u", Name: "carol"}, config)
	require.NoError(t, err)

	_, err = ParseAndValidateJWT(signed, config.PrivateKey)
	assert.Error(t, err)
}

func TestJWTRejectsGarbage(t *testing.T) {
	config := testAuthConfig(t)
	_, err := ParseAndValidateJWT("not-a-token", config.PrivateKey)
	assert.Error(t, err)
}
