// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session lifecycle.

It defines the core domain entities (User, Session) together with the service
that owns every business rule around credentials, tokens and revocation.

# Architecture

Entities here are plain structs. IDs and timestamps are assigned explicitly:
the service mints IDs, the repositories stamp created_at and updated_at.
*/
package auth

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/taskflow/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Taskflow service.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Explicitly omitted from JSON for security.
	FullName       string    `json:"full_name"`
	EmailVerified  bool      `json:"email_verified"`
	AvatarURL      *string   `json:"avatar_url"`
	Timezone       *string   `json:"timezone"`
	Language       *string   `json:"language"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Session is one login on one device.
//
// Only digests of the access and refresh tokens are kept; lookups hash the
// presented token with [sec.HashToken].
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	TokenHash        string    `json:"-"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	IPAddress        string    `json:"ip_address,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// SetTokens replaces both token digests.
func (s *Session) SetTokens(accessToken, refreshToken string) {
	s.TokenHash = sec.HashToken(accessToken)
	s.RefreshTokenHash = sec.HashToken(refreshToken)
}

// Expired reports whether the session is logically dead at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// # Normalization

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeName trims a display name and composes it to NFC so that visually
// identical names have identical lengths.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// # Field Identifiers

// Field names used in validation details and request payloads.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldFullName        = "full_name"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAvatarURL       = "avatar_url"
	FieldTimezone        = "timezone"
	FieldLanguage        = "language"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresAt       = "expires_at"
	FieldResetToken      = "reset_token"
	FieldUser            = "user"
	FieldMessage         = "message"
)
