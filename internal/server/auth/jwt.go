// Package auth implements the credential primitives of the service:
// password hashing and signed, time-bound bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Kind tells access and refresh tokens apart. Each kind is signed with its
// own secret, so a leaked access secret cannot forge refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the JWT payload: standard claims plus the subject's user id and
// the token kind.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Kind   Kind   `json:"kind"`
}

// Token is a signed credential together with the times encoded in it.
type Token struct {
	Value     string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type keyConfig struct {
	secret   []byte
	validity time.Duration
}

// TokenManager issues and verifies HS256 tokens for both kinds. It keeps no
// state besides its configuration; tokens are never stored server-side.
type TokenManager struct {
	keys map[Kind]keyConfig
	now  func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret []byte, accessValidity, refreshValidity time.Duration) *TokenManager {
	return &TokenManager{
		keys: map[Kind]keyConfig{
			KindAccess:  {secret: accessSecret, validity: accessValidity},
			KindRefresh: {secret: refreshSecret, validity: refreshValidity},
		},
		now: time.Now,
	}
}

// WithClock returns a copy of m that reads the current time from now.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	return &TokenManager{keys: m.keys, now: now}
}

// Validity returns the configured lifetime of tokens of the given kind.
func (m *TokenManager) Validity(kind Kind) time.Duration {
	return m.keys[kind].validity
}

// Issue mints a token of the given kind bound to userID.
func (m *TokenManager) Issue(userID string, kind Kind) (*Token, error) {
	key, ok := m.keys[kind]
	if !ok {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}

	issuedAt := jwt.NewNumericDate(m.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(key.validity))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
		UserID: userID,
		Kind:   kind,
	})

	signed, err := token.SignedString(key.secret)
	if err != nil {
		return nil, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return &Token{Value: signed, Kind: kind, IssuedAt: issuedAt.Time, ExpiresAt: expiresAt.Time}, nil
}

// Verify checks the signature against the kind's secret, the kind claim and
// the expiry (a token is valid strictly before its exp). It returns the bound
// user id, common.ErrTokenExpired for expired tokens and
// common.ErrInvalidToken for anything else.
func (m *TokenManager) Verify(tokenString string, kind Kind) (string, error) {
	key, ok := m.keys[kind]
	if !ok {
		return "", common.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return key.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Kind != kind || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
