// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Lookups that match nothing return [dberr.ErrNotFound]; a second row with the
// same email returns [dberr.ErrDuplicate].
type UserRepository interface {

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User (CreatedAt and UpdatedAt are stamped on success)

		Returns:
		  - error: dberr.ErrDuplicate on email collision, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given (already normalized) email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Update replaces every mutable column of the account.

		Parameters:
		  - context: context.Context
		  - user: *User (UpdatedAt is stamped on success)

		Returns:
		  - error: dberr.ErrNotFound if the row vanished, or persistence failures
	*/
	Update(context context.Context, user *User) error

	// Delete removes the account. Its sessions go with it.
	Delete(context context.Context, id string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for login sessions.
type SessionRepository interface {

	// Create persists a new session. CreatedAt is stamped on success.
	Create(context context.Context, session *Session) error

	/*
		FindByToken returns the session whose access-token digest matches token.

		Parameters:
		  - context: context.Context
		  - token: string (raw access token; hashed before lookup)

		Returns:
		  - *Session: Matching session, possibly already expired
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByToken(context context.Context, token string) (*Session, error)

	// FindByRefreshToken is FindByToken for the refresh-token digest.
	FindByRefreshToken(context context.Context, token string) (*Session, error)

	// Update replaces the token digests and expiry of an existing session.
	Update(context context.Context, session *Session) error

	// Delete removes one session.
	Delete(context context.Context, id string) error

	// DeleteAllForUser removes every session of a user and reports how many went.
	DeleteAllForUser(context context.Context, userID string) (int64, error)

	// DeleteExpired removes sessions whose expiry is at or before now.
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}

// # Reset Token Ledger

// ResetTokenLedger records which password reset tokens have been spent.
type ResetTokenLedger interface {

	/*
		Consume marks a reset token ID as used.

		Parameters:
		  - context: context.Context
		  - tokenID: string (the token's jti)
		  - ttl: time.Duration (how long the mark must outlive the token)

		Returns:
		  - bool: true on first use, false if the token was already spent
		  - error: Storage failures
	*/
	Consume(context context.Context, tokenID string, ttl time.Duration) (bool, error)
}
