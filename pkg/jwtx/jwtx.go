// Package jwtx is the session token codec shared by every ReeUtil service.
// Tokens are HS256 JWTs signed with a deployment-wide shared secret; the
// payload carries only enough to re-resolve the principal on each request.
package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime of a session token.
const DefaultSessionTTL = 24 * time.Hour

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
)

// Claims are the session token claims. The subject is the principal id; Kind
// distinguishes the customer and employee variants so the verifier side knows
// which store to re-resolve against.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is the principal variant, "customer" or "employee".
	Kind string `json:"knd"`

	// Role is a coarse-grained role signal ("admin" for employees, the
	// customer's literal role otherwise).
	Role string `json:"role,omitempty"`

	// Email for the authenticated principal.
	Email string `json:"email,omitempty"`

	// DisplayName is the principal's display name.
	DisplayName string `json:"name,omitempty"`
}

// Verifier validates a session token and returns the claims if it is legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Codec signs and verifies session tokens with a shared HMAC secret.
type Codec struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// NewCodec builds a Codec, falling back to DefaultSessionTTL when ttl is zero.
func NewCodec(secret []byte, issuer string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Codec{Secret: secret, Issuer: issuer, TTL: ttl}
}

// Sign mints a session token for the given principal.
func (c *Codec) Sign(principalID, kind, role, email, displayName string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
		},
		Kind:        kind,
		Role:        role,
		Email:       email,
		DisplayName: displayName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.Secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token. Expiry and signature are
// enforced here; the caller still has to re-resolve the subject against the
// principal store.
func (c *Codec) Verify(raw string) (Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAlgMismatch
		}
		return c.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, ErrAlgMismatch):
			return Claims{}, ErrAlgMismatch
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !token.Valid {
		return Claims{}, ErrMalformed
	}

	if c.Issuer != "" && claims.Issuer != c.Issuer {
		return Claims{}, ErrIssuer
	}

	return claims, nil
}
