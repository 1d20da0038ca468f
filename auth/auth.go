// Package auth verifies the handshake credential presented when a client
// opens a real-time connection. Tokens are HS256-signed compact tokens
// (JWT-compatible): verification checks the signature and expiry and yields
// the owning identity. Issuance lives in the main SharpFlow application;
// only verification happens here.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shajith240/SHARPFLOW-sub002/errors"
)

// Claims carries the verified identity attached to a connection.
type Claims struct {
	UserID    string `json:"sub"`
	Plan      string `json:"plan,omitempty"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

// Verifier checks a handshake credential and returns the decoded identity.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// TokenVerifier verifies HS256 compact tokens against a shared secret.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier creates a verifier for the given signing secret.
func NewTokenVerifier(secret []byte) (*TokenVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.WrapValidation(errors.ErrInvalidConfig,
			"TokenVerifier", "NewTokenVerifier", "empty signing secret")
	}
	return &TokenVerifier{secret: secret, now: time.Now}, nil
}

type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ,omitempty"`
}

// Verify checks the token's structure, signature and expiry. Any failure is
// an authentication error; the handshake must be refused before the
// connection reaches the registry.
func (v *TokenVerifier) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, errors.WrapAuthentication(errors.ErrInvalidToken,
			"TokenVerifier", "Verify", "parse token structure")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, errors.WrapAuthentication(errors.ErrInvalidToken,
			"TokenVerifier", "Verify", "decode header")
	}
	var header tokenHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil || header.Alg != "HS256" {
		return Claims{}, errors.WrapAuthentication(errors.ErrInvalidToken,
			"TokenVerifier", "Verify", "check signing algorithm")
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Claims{}, errors.WrapAuthentication(errors.ErrInvalidToken,
			"TokenVerifier", "Verify", "decode signature")
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if subtle.ConstantTimeCompare(sig, mac.Sum(nil)) != 1 {
		return Claims{}, errors.WrapAuthentication(errors.ErrInvalidToken,
			"TokenVerifier", "Verify", "verify signature")
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, errors.WrapAuthentication(errors.ErrInvalidToken,
			"TokenVerifier", "Verify", "decode claims")
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Claims{}, errors.WrapAuthentication(errors.ErrInvalidToken,
			"TokenVerifier", "Verify", "parse claims")
	}

	if claims.UserID == "" {
		return Claims{}, errors.WrapAuthentication(errors.ErrInvalidToken,
			"TokenVerifier", "Verify", "missing subject claim")
	}
	if claims.ExpiresAt == 0 || v.now().Unix() >= claims.ExpiresAt {
		return Claims{}, errors.WrapAuthentication(errors.ErrTokenExpired,
			"TokenVerifier", "Verify", "check expiry")
	}

	return claims, nil
}

// Sign produces an HS256 compact token for the given claims. Used by tests;
// production tokens are minted by the main app.
func Sign(claims Claims, secret []byte) (string, error) {
	headerJSON, err := json.Marshal(tokenHeader{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) +
		"." + base64.RawURLEncoding.EncodeToString(payloadJSON)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return signingInput + "." + sig, nil
}
