package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenService() TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "phimhub-test",
		Duration: time.Hour,
	}
}

func testUser() *User {
	return &User{
		ID:           "u-123",
		Username:     "linh",
		Email:        "linh@example.com",
		TokenVersion: 3,
	}
}

func TestSignParseRoundTrip(t *testing.T) {
	ts := testTokenService()

	token, exp, err := ts.Sign(testUser())
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-123", claims.UserID)
	assert.Equal(t, "linh", claims.Username)
	assert.Equal(t, "linh@example.com", claims.Email)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, "phimhub-test", claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	ts := testTokenService()
	token, _, err := ts.Sign(testUser())
	require.NoError(t, err)

	other := TokenService{Secret: []byte("different"), Issuer: ts.Issuer, Duration: ts.Duration}
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	ts := testTokenService()
	ts.Duration = -time.Minute

	token, _, err := ts.Sign(testUser())
	require.NoError(t, err)

	_, err = ts.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsUnsignedAlgorithm(t *testing.T) {
	ts := testTokenService()

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-123"})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ts.Parse(raw)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := testTokenService().Parse("not.a.token")
	assert.Error(t, err)
}
