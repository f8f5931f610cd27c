// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/taskflow/internal/platform/database/schema"
	"github.com/taibuivan/taskflow/internal/platform/dberr"
	"github.com/taibuivan/taskflow/internal/platform/sec"
)

// Querier is the subset of [pgxpool.Pool] the repositories need.
//
// Both *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// # User Repository

var (
	userSelect = fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(schema.User.Columns(), ", "), schema.User.Table)

	userInsert = fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		schema.User.Table, strings.Join(schema.User.Columns(), ", "))

	userUpdate = fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9
		WHERE %s = $1`,
		schema.User.Table,
		schema.User.Email, schema.User.HashedPassword, schema.User.FullName, schema.User.EmailVerified,
		schema.User.AvatarURL, schema.User.Timezone, schema.User.Language, schema.User.UpdatedAt,
		schema.User.ID,
	)
)

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	db Querier
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db Querier) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

/*
Create persists a new user record into the users table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: dberr.ErrDuplicate when the email is taken, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	now := time.Now().UTC()
	_, err := repository.db.Exec(context, userInsert,
		user.ID,
		user.Email,
		user.HashedPassword,
		user.FullName,
		user.EmailVerified,
		user.AvatarURL,
		user.Timezone,
		user.Language,
		now,
		now,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_create_failed")
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// FindByID retrieves a user by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := userSelect + " WHERE " + schema.User.ID + " = $1"

	user, err := scanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_id_failed")
	}
	return user, nil
}

// FindByEmail retrieves a user by their unique, lower-cased email address.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := userSelect + " WHERE " + schema.User.Email + " = $1"

	user, err := scanUser(repository.db.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_email_failed")
	}
	return user, nil
}

/*
Update overwrites every mutable column of the user.

Returns:
  - error: dberr.ErrNotFound if no row matched, dberr.ErrDuplicate on email collision
*/
func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	now := time.Now().UTC()
	tag, err := repository.db.Exec(context, userUpdate,
		user.ID,
		user.Email,
		user.HashedPassword,
		user.FullName,
		user.EmailVerified,
		user.AvatarURL,
		user.Timezone,
		user.Language,
		now,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_update_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	user.UpdatedAt = now
	return nil
}

// Delete removes a user. Sessions cascade.
func (repository *PostgresUserRepository) Delete(context context.Context, id string) error {
	tag, err := repository.db.Exec(context, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.User.Table, schema.User.ID), id)
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_delete_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.FullName,
		&user.EmailVerified,
		&user.AvatarURL,
		&user.Timezone,
		&user.Language,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// # Session Repository

var (
	sessionSelect = fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, COALESCE(%s, ''), COALESCE(%s, ''), %s FROM %s`,
		schema.Session.ID, schema.Session.UserID, schema.Session.TokenHash, schema.Session.RefreshTokenHash,
		schema.Session.ExpiresAt, schema.Session.IPAddress, schema.Session.UserAgent, schema.Session.CreatedAt,
		schema.Session.Table,
	)

	sessionInsert = fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`,
		schema.Session.Table, strings.Join(schema.Session.Columns(), ", "))

	sessionUpdate = fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4 WHERE %s = $1`,
		schema.Session.Table, schema.Session.TokenHash, schema.Session.RefreshTokenHash, schema.Session.ExpiresAt,
		schema.Session.ID)

	sessionDelete = fmt.Sprintf(`DELETE FROM %s WHERE %%s = $1`, schema.Session.Table)
)

// PostgresSessionRepository implements SessionRepository using pgx.
type PostgresSessionRepository struct {
	db Querier
}

// NewSessionRepository creates a new PostgreSQL implementation of the SessionRepository.
func NewSessionRepository(db Querier) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

/*
Create persists a session with its token digests.

Parameters:
  - context: context.Context
  - session: *Session (TokenHash and RefreshTokenHash must be set)

Returns:
  - error: Persistence failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	now := time.Now().UTC()
	_, err := repository.db.Exec(context, sessionInsert,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.RefreshTokenHash,
		session.ExpiresAt,
		session.IPAddress,
		session.UserAgent,
		now,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres_session_repo_create_failed")
	}

	session.CreatedAt = now
	return nil
}

// FindByToken hashes the raw access token and looks up its session.
func (repository *PostgresSessionRepository) FindByToken(context context.Context, token string) (*Session, error) {
	query := sessionSelect + " WHERE " + schema.Session.TokenHash + " = $1"

	session, err := scanSession(repository.db.QueryRow(context, query, sec.HashToken(token)))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_session_repo_find_by_token_failed")
	}
	return session, nil
}

// FindByRefreshToken hashes the raw refresh token and looks up its session.
func (repository *PostgresSessionRepository) FindByRefreshToken(context context.Context, token string) (*Session, error) {
	query := sessionSelect + " WHERE " + schema.Session.RefreshTokenHash + " = $1"

	session, err := scanSession(repository.db.QueryRow(context, query, sec.HashToken(token)))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_session_repo_find_by_refresh_token_failed")
	}
	return session, nil
}

// Update rewrites the token digests and expiry of a session.
func (repository *PostgresSessionRepository) Update(context context.Context, session *Session) error {
	tag, err := repository.db.Exec(context, sessionUpdate,
		session.ID,
		session.TokenHash,
		session.RefreshTokenHash,
		session.ExpiresAt,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres_session_repo_update_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// Delete removes one session by ID.
func (repository *PostgresSessionRepository) Delete(context context.Context, id string) error {
	tag, err := repository.db.Exec(context, fmt.Sprintf(sessionDelete, schema.Session.ID), id)
	if err != nil {
		return dberr.Wrap(err, "postgres_session_repo_delete_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// DeleteAllForUser revokes every session owned by userID.
func (repository *PostgresSessionRepository) DeleteAllForUser(context context.Context, userID string) (int64, error) {
	tag, err := repository.db.Exec(context, fmt.Sprintf(sessionDelete, schema.Session.UserID), userID)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres_session_repo_delete_all_failed")
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired purges sessions whose expiry is at or before now.
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	tag, err := repository.db.Exec(context, fmt.Sprintf(`DELETE FROM %s WHERE %s <= $1`, schema.Session.Table, schema.Session.ExpiresAt), now)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres_session_repo_delete_expired_failed")
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.RefreshTokenHash,
		&session.ExpiresAt,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}
