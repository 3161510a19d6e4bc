package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/scanearn/coinvault/internal/apperror"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken indicates a token is malformed, expired or revoked.
	ErrInvalidToken = apperror.New(apperror.KindUnauthorized, "invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = apperror.New(apperror.KindUnauthorized, "token expired")
)

// Claims are carried by both access and refresh tokens.
type Claims struct {
	Role    string `json:"role"`
	Version int    `json:"ver"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

func signToken(secret, subject, role, typ string, version int, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Role:    role,
		Version: version,
		Type:    typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, tokenString, typ string, now time.Time) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
