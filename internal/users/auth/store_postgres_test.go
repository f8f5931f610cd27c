// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/taskflow/internal/platform/apperr"
	"github.com/taibuivan/taskflow/internal/platform/dberr"
	"github.com/taibuivan/taskflow/internal/platform/sec"
	"github.com/taibuivan/taskflow/internal/users/auth"
)

const testUserID = "0195f0a0-0000-7000-8000-000000000001"

var userColumns = []string{
	"id", "email", "hashed_password", "full_name", "email_verified",
	"avatar_url", "timezone", "language", "created_at", "updated_at",
}

var sessionColumns = []string{
	"id", "user_id", "token_hash", "refresh_token_hash", "expires_at",
	"ip_address", "user_agent", "created_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

/*
TestPostgresUserRepository_Create verifies inserts and unique-violation mapping.
*/
func TestPostgresUserRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(testUserID, "alice@x.com", "digest", "Alice A", false, (*string)(nil), (*string)(nil), (*string)(nil), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: dberr.ErrDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setupMock(mock)

			user := &auth.User{ID: testUserID, Email: "alice@x.com", HashedPassword: "digest", FullName: "Alice A"}
			err := auth.NewUserRepository(mock).Create(context.Background(), user)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, user.CreatedAt.IsZero())
			} else {
				require.NoError(t, err)
				assert.False(t, user.CreatedAt.IsZero())
				assert.Equal(t, user.CreatedAt, user.UpdatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

/*
TestPostgresUserRepository_FindByEmail verifies hydration and error classification.
*/
func TestPostgresUserRepository_FindByEmail(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	timezone := "Europe/Berlin"

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantCode  string
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userColumns).
					AddRow(testUserID, "alice@x.com", "digest", "Alice A", true, (*string)(nil), &timezone, (*string)(nil), created, created)
				mock.ExpectQuery(`FROM users WHERE email`).WithArgs("alice@x.com").WillReturnRows(rows)
			},
		},
		{
			name: "missing",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE email`).WithArgs("alice@x.com").WillReturnError(pgx.ErrNoRows)
			},
			wantCode: apperr.CodeNotFound,
		},
		{
			name: "connection failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE email`).WithArgs("alice@x.com").WillReturnError(errors.New("connection refused"))
			},
			wantCode: apperr.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setupMock(mock)

			user, err := auth.NewUserRepository(mock).FindByEmail(context.Background(), "alice@x.com")

			if tt.wantCode != "" {
				assert.True(t, apperr.HasCode(err, tt.wantCode), "got %v", err)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, testUserID, user.ID)
				assert.True(t, user.EmailVerified)
				assert.Equal(t, &timezone, user.Timezone)
				assert.Nil(t, user.AvatarURL)
				assert.Equal(t, created, user.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

/*
TestPostgresUserRepository_Update verifies a missing row is reported as not found.
*/
func TestPostgresUserRepository_Update(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`UPDATE users`).
		WithArgs(testUserID, "alice@x.com", "digest", "Alice A", true, (*string)(nil), (*string)(nil), (*string)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	user := &auth.User{ID: testUserID, Email: "alice@x.com", HashedPassword: "digest", FullName: "Alice A", EmailVerified: true}
	err := auth.NewUserRepository(mock).Update(context.Background(), user)

	assert.ErrorIs(t, err, dberr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestPostgresSessionRepository_Create verifies only token digests reach the database.
*/
func TestPostgresSessionRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	expires := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)

	session := &auth.Session{ID: "s1", UserID: testUserID, ExpiresAt: expires, IPAddress: "203.0.113.7"}
	session.SetTokens("raw-access", "raw-refresh")

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("s1", testUserID, sec.HashToken("raw-access"), sec.HashToken("raw-refresh"), expires, "203.0.113.7", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, auth.NewSessionRepository(mock).Create(context.Background(), session))
	assert.False(t, session.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestPostgresSessionRepository_FindByToken verifies the raw token is hashed before lookup.
*/
func TestPostgresSessionRepository_FindByToken(t *testing.T) {
	mock := newMockPool(t)
	expires := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(sessionColumns).
		AddRow("s1", testUserID, sec.HashToken("raw-access"), sec.HashToken("raw-refresh"), expires, "", "curl/8", expires)
	mock.ExpectQuery(`FROM sessions WHERE token_hash`).WithArgs(sec.HashToken("raw-access")).WillReturnRows(rows)
	mock.ExpectQuery(`FROM sessions WHERE refresh_token_hash`).WithArgs(sec.HashToken("stale")).WillReturnError(pgx.ErrNoRows)

	repository := auth.NewSessionRepository(mock)

	session, err := repository.FindByToken(context.Background(), "raw-access")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, "curl/8", session.UserAgent)

	_, err = repository.FindByRefreshToken(context.Background(), "stale")
	assert.ErrorIs(t, err, dberr.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestPostgresSessionRepository_Deletes verifies bulk deletes report affected rows.
*/
func TestPostgresSessionRepository_Deletes(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM sessions WHERE user_id`).WithArgs(testUserID).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).WithArgs(now).WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec(`DELETE FROM sessions WHERE id`).WithArgs("gone").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repository := auth.NewSessionRepository(mock)

	revoked, err := repository.DeleteAllForUser(context.Background(), testUserID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, revoked)

	swept, err := repository.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 5, swept)

	assert.ErrorIs(t, repository.Delete(context.Background(), "gone"), dberr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
