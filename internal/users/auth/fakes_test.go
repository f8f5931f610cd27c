// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/taskflow/internal/platform/dberr"
	"github.com/taibuivan/taskflow/internal/platform/sec"
	"github.com/taibuivan/taskflow/internal/users/auth"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

// # Clock

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// # Users

type memoryUsers struct {
	mu    sync.Mutex
	rows  map[string]auth.User
	err   error
	saves int

	// staleReads makes FindByEmail miss committed rows, as a concurrent
	// signup does before the winner's insert is visible.
	staleReads bool
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{rows: map[string]auth.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, row := range m.rows {
		if row.Email == user.Email {
			return dberr.ErrDuplicate
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.rows[user.ID] = *user
	m.saves++
	return nil
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return &row, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.staleReads {
		return nil, dberr.ErrNotFound
	}
	for _, row := range m.rows {
		if row.Email == email {
			return &row, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (m *memoryUsers) Update(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.rows[user.ID]; !ok {
		return dberr.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	m.rows[user.ID] = *user
	m.saves++
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return dberr.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// # Sessions

type memorySessions struct {
	mu   sync.Mutex
	rows map[string]auth.Session
	err  error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{rows: map[string]auth.Session{}}
}

func (m *memorySessions) Create(_ context.Context, session *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	session.CreatedAt = time.Now()
	m.rows[session.ID] = *session
	return nil
}

func (m *memorySessions) find(match func(auth.Session) bool) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, row := range m.rows {
		if match(row) {
			return &row, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (m *memorySessions) FindByToken(_ context.Context, token string) (*auth.Session, error) {
	digest := sec.HashToken(token)
	return m.find(func(s auth.Session) bool { return s.TokenHash == digest })
}

func (m *memorySessions) FindByRefreshToken(_ context.Context, token string) (*auth.Session, error) {
	digest := sec.HashToken(token)
	return m.find(func(s auth.Session) bool { return s.RefreshTokenHash == digest })
}

func (m *memorySessions) Update(_ context.Context, session *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.rows[session.ID]; !ok {
		return dberr.ErrNotFound
	}
	m.rows[session.ID] = *session
	return nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.rows[id]; !ok {
		return dberr.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memorySessions) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	return m.deleteWhere(func(s auth.Session) bool { return s.UserID == userID })
}

func (m *memorySessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return m.deleteWhere(func(s auth.Session) bool { return s.Expired(now) })
}

func (m *memorySessions) deleteWhere(match func(auth.Session) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var removed int64
	for id, row := range m.rows {
		if match(row) {
			delete(m.rows, id)
			removed++
		}
	}
	return removed, nil
}

func (m *memorySessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// # Ledger & Mailer

type memoryLedger struct {
	mu   sync.Mutex
	used map[string]time.Duration
}

func (m *memoryLedger) Consume(_ context.Context, tokenID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used == nil {
		m.used = map[string]time.Duration{}
	}
	if _, ok := m.used[tokenID]; ok {
		return false, nil
	}
	m.used[tokenID] = ttl
	return true, nil
}

type sentMail struct {
	kind, to, token string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingMailer) SendVerification(_ context.Context, to, token string) error {
	return r.record("verification", to, token)
}

func (r *recordingMailer) SendPasswordReset(_ context.Context, to, token string) error {
	return r.record("password_reset", to, token)
}

func (r *recordingMailer) record(kind, to, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{kind, to, token})
	return r.err
}

func (r *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent)
	return r.sent[len(r.sent)-1]
}

// # Harness

type harness struct {
	service  *auth.Service
	users    *memoryUsers
	sessions *memorySessions
	ledger   *memoryLedger
	mailer   *recordingMailer
	tokens   *sec.TokenService
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := newFakeClock()
	tokens, err := sec.NewTokenService(testSecret, "taskflow-test", sec.WithClock(clock.Now))
	require.NoError(t, err)
	hasher, err := sec.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	h := &harness{
		users:    newMemoryUsers(),
		sessions: newMemorySessions(),
		ledger:   &memoryLedger{},
		mailer:   &recordingMailer{},
		tokens:   tokens,
		clock:    clock,
	}
	h.service = auth.NewService(auth.Dependencies{
		Users:       h.users,
		Sessions:    h.sessions,
		Hasher:      hasher,
		Tokens:      tokens,
		Mailer:      h.mailer,
		ResetLedger: h.ledger,
		Clock:       clock.Now,
	}, auth.DefaultPolicy())
	return h
}

func (h *harness) signup(t *testing.T, email, password, name string) *auth.User {
	t.Helper()
	user, err := h.service.Signup(context.Background(), auth.SignupInput{Email: email, Password: password, FullName: name})
	require.NoError(t, err)
	return user
}

func (h *harness) signin(t *testing.T, email, password string, remember bool) *auth.SigninResult {
	t.Helper()
	result, err := h.service.Signin(context.Background(), auth.SigninInput{Email: email, Password: password, RememberMe: remember})
	require.NoError(t, err)
	return result
}
