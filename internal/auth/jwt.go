/*-------------------------------------------------------------------------
 *
 * jwt.go
 *    JWT bearer tokens for the approvals API
 *
 * The signing secret comes from configuration (auth.jwt_secret) and is
 * passed to a Signer explicitly.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/auth/jwt.go
 *
 *-------------------------------------------------------------------------
 */

package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

/* ErrNoSecret is returned when tokens are requested without a configured secret */
var ErrNoSecret = errors.New("jwt secret is not configured")

const defaultTokenTTL = 24 * time.Hour

/* Claims represents JWT claims; UserID is the acting reviewer */
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

/* Signer issues and validates HS256 tokens */
type Signer struct {
	secret []byte
	ttl    time.Duration
}

/* NewSigner creates a signer; ttl <= 0 means 24 hours */
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl}, nil
}

/* GenerateToken generates a JWT token for a user */
func (s *Signer) GenerateToken(userID, username string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

/* ValidateToken validates a JWT token and returns the claims */
func (s *Signer) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

/* ExtractToken extracts the JWT token from an Authorization header */
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}

	/* Both "Bearer <token>" and a bare "<token>" are accepted */
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1], nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "", errors.New("invalid authorization header format")
}
