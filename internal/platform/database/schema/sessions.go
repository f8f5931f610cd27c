// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// SessionTable represents the 'sessions' table
type SessionTable struct {
	Table            string
	ID               string
	UserID           string
	TokenHash        string
	RefreshTokenHash string
	ExpiresAt        string
	IPAddress        string
	UserAgent        string
	CreatedAt        string
}

// Session is the schema definition for sessions
var Session = SessionTable{
	Table:            "sessions",
	ID:               "id",
	UserID:           "user_id",
	TokenHash:        "token_hash",
	RefreshTokenHash: "refresh_token_hash",
	ExpiresAt:        "expires_at",
	IPAddress:        "ip_address",
	UserAgent:        "user_agent",
	CreatedAt:        "created_at",
}

// Columns returns all standard column names in scan order
func (t SessionTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.TokenHash, t.RefreshTokenHash, t.ExpiresAt,
		t.IPAddress, t.UserAgent, t.CreatedAt,
	}
}
