// Package auth issues and verifies the bearer tokens that prove control of a
// ledger account address. There is no user database: the token subject IS the
// account address, and holding a validly signed token is the proof of control
// the engine's authorization guard requires.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/outcomely/timelock/internal/domain"
)

// Roles carried in the token. Admin tokens are required by the backoffice.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims extends jwt.RegisteredClaims with application-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"type"` // always "access"
}

// TokenService signs and parses account tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs an access token whose subject is the given account address.
func (s *TokenService) Issue(address domain.Address, role string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(address),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role:      role,
		TokenType: "access",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth.Issue: sign token: %w", err)
	}
	return token, nil
}

// Parse validates the token signature, algorithm, expiry and type, and
// returns its claims. All failures map to ErrTokenInvalid.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || claims.TokenType != "access" || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
