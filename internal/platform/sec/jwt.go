// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing) from
// the domain logic. It never touches persistence; the auth service consumes it
// through small interfaces so that tests can substitute deterministic fakes.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the minimum accepted length of the HMAC signing secret.
const MinSecretLength = 32

// Purpose tags a token with the single operation it may authorize.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
	PurposeVerify  Purpose = "verify"
	PurposeReset   Purpose = "reset"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposeVerify, PurposeReset:
		return true
	}
	return false
}

// Decode failures. Every variant matches [ErrInvalidToken] under [errors.Is];
// the more specific values exist for diagnostics only.
var (
	ErrInvalidToken = errors.New("sec: invalid token")
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrWrongPurpose = fmt.Errorf("%w: wrong purpose", ErrInvalidToken)
)

// Claims is the payload carried by every token issued by [TokenService].
//
// The registered "jti" is a random identifier so two tokens minted for the
// same subject within the same second never collide.
type Claims struct {
	jwt.RegisteredClaims

	Purpose Purpose `json:"type"`
	// Email is only set on access tokens.
	Email string `json:"email,omitempty"`
}

// TokenService issues and validates HS256-signed tokens.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenOption customizes a [TokenService].
type TokenOption func(*TokenService)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) TokenOption {
	return func(service *TokenService) { service.now = now }
}

// NewTokenService creates a new TokenService signing with secret.
func NewTokenService(secret, issuer string, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("sec: signing secret must be at least %d characters", MinSecretLength)
	}

	service := &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Issue creates a signed token for subject with the given purpose and lifetime.
func (service *TokenService) Issue(subject string, purpose Purpose, timeToLive time.Duration) (string, error) {
	return service.issue(subject, purpose, "", timeToLive)
}

// IssueAccess creates an access token that also carries the user's email.
func (service *TokenService) IssueAccess(subject, email string, timeToLive time.Duration) (string, error) {
	return service.issue(subject, PurposeAccess, email, timeToLive)
}

func (service *TokenService) issue(subject string, purpose Purpose, email string, timeToLive time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("sec: token subject is required")
	}
	if !purpose.Valid() {
		return "", fmt.Errorf("sec: unknown token purpose %q", purpose)
	}
	if timeToLive <= 0 {
		return "", fmt.Errorf("sec: token ttl must be positive, got %s", timeToLive)
	}

	currentTime := service.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Purpose: purpose,
		Email:   email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Decode verifies signature, issuer and expiry and returns the claims.
//
// Any failure is reported as [ErrInvalidToken] or one of its refinements.
func (service *TokenService) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return service.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || !claims.Purpose.Valid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// DecodeFor decodes tokenString and additionally requires the given purpose.
func (service *TokenService) DecodeFor(tokenString string, purpose Purpose) (*Claims, error) {
	claims, err := service.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
