package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret", "https://issuer.example.com/")

	token, err := v.Issue("auth0|abc123", "alice@example.com", "alice", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc123", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret", "")

	token, err := v.Issue("auth0|abc123", "", "", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	minter := NewVerifier("minting-secret", "")
	token, err := minter.Issue("auth0|abc123", "", "", time.Hour)
	require.NoError(t, err)

	v := NewVerifier("other-secret", "")
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongIssuer(t *testing.T) {
	minter := NewVerifier("test-secret", "https://evil.example.com/")
	token, err := minter.Issue("auth0|abc123", "", "", time.Hour)
	require.NoError(t, err)

	v := NewVerifier("test-secret", "https://issuer.example.com/")
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmptySubject(t *testing.T) {
	v := NewVerifier("test-secret", "")

	token, err := v.Issue("", "alice@example.com", "alice", time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnexpectedSigningMethod(t *testing.T) {
	// A token signed with "none" must never pass, whatever its claims say.
	claims := &Claims{}
	claims.Subject = "auth0|abc123"
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims)
	signed, err := token.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	v := NewVerifier("test-secret", "")
	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbageToken(t *testing.T) {
	v := NewVerifier("test-secret", "")
	_, err := v.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
