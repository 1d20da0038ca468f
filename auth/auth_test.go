package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shajith240/SHARPFLOW-sub002/errors"
)

var testSecret = []byte("test-signing-secret")

func validClaims() Claims {
	return Claims{
		UserID:    "user-123",
		Plan:      "ultra",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
		IssuedAt:  time.Now().Unix(),
	}
}

func TestVerify_ValidToken(t *testing.T) {
	verifier, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	token, err := Sign(validClaims(), testSecret)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ultra", claims.Plan)
}

func TestVerify_WrongSecret(t *testing.T) {
	verifier, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	token, err := Sign(validClaims(), []byte("some-other-secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerify_ExpiredToken(t *testing.T) {
	verifier, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	claims := validClaims()
	claims.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	token, err := Sign(claims, testSecret)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTokenExpired)
	assert.True(t, errors.IsAuthentication(err))
}

func TestVerify_Garbage(t *testing.T) {
	verifier, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c.d", "!!!.???.###"} {
		_, err := verifier.Verify(token)
		assert.Error(t, err, "token %q must be rejected", token)
		assert.True(t, errors.IsAuthentication(err))
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	verifier, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	token, err := Sign(validClaims(), testSecret)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forged := base64.RawURLEncoding.EncodeToString(
		[]byte(`{"sub":"attacker","exp":9999999999}`))
	_, err = verifier.Verify(parts[0] + "." + forged + "." + parts[2])
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerify_RejectsNonHS256(t *testing.T) {
	verifier, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	// alg:none style token must never pass, signature or not.
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"user-123","exp":9999999999}`))
	_, err = verifier.Verify(header + "." + payload + ".")
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
}

func TestVerify_MissingSubject(t *testing.T) {
	verifier, err := NewTokenVerifier(testSecret)
	require.NoError(t, err)

	claims := validClaims()
	claims.UserID = ""
	token, err := Sign(claims, testSecret)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
}

func TestNewTokenVerifier_EmptySecret(t *testing.T) {
	_, err := NewTokenVerifier(nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
