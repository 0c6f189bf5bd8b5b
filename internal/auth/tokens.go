package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eventra/eventra/internal/clock"
	"github.com/eventra/eventra/internal/domain"
)

// Claims is the verified identity attached to a request. The core trusts
// these without re-checking credentials.
type Claims struct {
	UserID string
	Role   domain.Role
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokenManager(secret string, ttl time.Duration, clk clock.Clock) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clk,
	}
}

func (m *TokenManager) Issue(userID string, role domain.Role) (string, error) {
	now := m.clock.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role: string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Verify(token string) (Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, domain.ErrInvalidToken
	}
	return Claims{
		UserID: claims.Subject,
		Role:   domain.Role(claims.Role),
	}, nil
}
