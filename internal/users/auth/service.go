// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/taskflow/internal/platform/apperr"
	"github.com/taibuivan/taskflow/internal/platform/dberr"
	"github.com/taibuivan/taskflow/internal/platform/metrics"
	"github.com/taibuivan/taskflow/internal/platform/sec"
	"github.com/taibuivan/taskflow/internal/platform/validate"
	"github.com/taibuivan/taskflow/pkg/pointer"
	"github.com/taibuivan/taskflow/pkg/uuid"
)

// # Contracts & Types

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Verify(plainTextPassword, digest string) bool

	// Decoy burns the same CPU as a real Verify.
	Decoy(plainTextPassword string)
}

// TokenProvider defines the contract for issuing and decoding signed tokens.
type TokenProvider interface {
	Issue(subject string, purpose sec.Purpose, timeToLive time.Duration) (string, error)
	IssueAccess(subject, email string, timeToLive time.Duration) (string, error)
	DecodeFor(token string, purpose sec.Purpose) (*sec.Claims, error)
}

// Mailer delivers the verification and reset links.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// Policy holds the token lifetimes the service applies.
type Policy struct {
	AccessTokenTTL       time.Duration
	RememberTokenTTL     time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
}

// DefaultPolicy returns the standard lifetimes.
func DefaultPolicy() Policy {
	return Policy{
		AccessTokenTTL:       DefaultAccessTokenTTL,
		RememberTokenTTL:     DefaultRememberTokenTTL,
		VerificationTokenTTL: VerificationTokenTTL,
		ResetTokenTTL:        ResetTokenTTL,
	}
}

// Dependencies groups the collaborators of [Service].
//
// Mailer, ResetLedger, Metrics, Logger and Clock are optional.
type Dependencies struct {
	Users       UserRepository
	Sessions    SessionRepository
	Hasher      PasswordHasher
	Tokens      TokenProvider
	Mailer      Mailer
	ResetLedger ResetTokenLedger
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance or revocation logic must be reviewed by the security team.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	hasher            PasswordHasher
	tokenProvider     TokenProvider
	mailer            Mailer
	resetLedger       ResetTokenLedger
	metrics           *metrics.Metrics
	logger            *slog.Logger
	clock             func() time.Time
	policy            Policy
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(deps Dependencies, policy Policy) *Service {
	service := &Service{
		userRepository:    deps.Users,
		sessionRepository: deps.Sessions,
		hasher:            deps.Hasher,
		tokenProvider:     deps.Tokens,
		mailer:            deps.Mailer,
		resetLedger:       deps.ResetLedger,
		metrics:           deps.Metrics,
		logger:            deps.Logger,
		clock:             deps.Clock,
		policy:            policy,
	}
	if service.logger == nil {
		service.logger = slog.Default()
	}
	if service.clock == nil {
		service.clock = time.Now
	}
	return service
}

// Errors shared by several flows. Messages never reveal which check failed.
var (
	errInvalidCredentials = apperr.Unauthorized("Invalid email or password")
	errInvalidSession     = apperr.Unauthorized("Invalid or expired session")
	errInvalidRefresh     = apperr.Unauthorized("Invalid or expired refresh token")
	errInvalidVerify      = apperr.Unauthorized("Invalid or expired verification token")
	errInvalidReset       = apperr.Unauthorized("Invalid or expired reset token")
	errResetTokenUsed     = apperr.Unauthorized("Reset token has already been used")
	errWrongPassword      = apperr.Unauthorized("Current password is incorrect")
	errEmailTaken         = apperr.Conflict("Email is already registered")
	errUserNotFound       = apperr.NotFound("User")
)

// # Registration Flow

// SignupInput holds the data required to enroll a new member.
type SignupInput struct {
	Email    string
	Password string
	FullName string
}

/*
Signup validates, hashes, and persists a brand new user account.

Description: The email is trimmed and lower-cased, the name trimmed and NFC
normalized. The account starts unverified and a verification link is mailed.

Parameters:
  - context: context.Context
  - input: SignupInput

Returns:
  - *User: Created entity
  - error: Validation, Conflict (if the email exists) or storage errors
*/
func (service *Service) Signup(context context.Context, input SignupInput) (user *User, err error) {
	defer func() { service.observe(opSignup, err) }()

	email := NormalizeEmail(input.Email)
	fullName := normalizeName(input.FullName)

	validator := &validate.Validator{}
	validator.
		Email(FieldEmail, email).
		MinLen(FieldPassword, input.Password, MinPasswordLength).
		MinLen(FieldFullName, fullName, MinFullNameLength).
		MaxLen(FieldFullName, fullName, MaxFullNameLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Pre-check for a friendly message. The unique index still decides races.
	_, err = service.userRepository.FindByEmail(context, email)
	switch {
	case err == nil:
		return nil, errEmailTaken
	case !errors.Is(err, dberr.ErrNotFound):
		return nil, fmt.Errorf("auth_service_signup_failed: %w", err)
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	user = &User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
		FullName:       fullName,
		EmailVerified:  false,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		if errors.Is(err, dberr.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, fmt.Errorf("auth_service_signup_failed: %w", err)
	}

	service.sendVerification(context, user)

	service.logger.InfoContext(context, "user_signed_up", slog.String("user_id", user.ID))
	return user, nil
}

// # Authentication Flow

// SigninInput defines credentials for an authentication attempt.
type SigninInput struct {
	Email      string
	Password   string
	RememberMe bool
	IPAddress  string
	UserAgent  string
}

// SigninResult represents a successfully established session.
type SigninResult struct {
	User         *User
	Session      *Session
	AccessToken  string
	RefreshToken string
}

/*
Signin validates user credentials and opens a new session.

Description: Unknown emails and wrong passwords produce the same error, and an
unknown email still runs a decoy hash so both paths cost the same. The access
token lives for the short tier, or the extended tier with RememberMe. The
refresh token always lives for the extended tier.

Parameters:
  - context: context.Context
  - input: SigninInput

Returns:
  - *SigninResult: Session plus raw tokens
  - error: Unauthorized or internal failures
*/
func (service *Service) Signin(context context.Context, input SigninInput) (result *SigninResult, err error) {
	defer func() { service.observe(opSignin, err) }()

	email := NormalizeEmail(input.Email)

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			service.hasher.Decoy(input.Password)
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("auth_service_signin_failed: %w", err)
	}

	if !service.hasher.Verify(input.Password, user.HashedPassword) {
		return nil, errInvalidCredentials
	}

	accessTTL := service.policy.AccessTokenTTL
	if input.RememberMe {
		accessTTL = service.policy.RememberTokenTTL
	}

	accessToken, refreshToken, err := service.issuePair(user, accessTTL)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		ExpiresAt: service.clock().Add(accessTTL),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	}
	session.SetTokens(accessToken, refreshToken)

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_signin_failed: %w", err)
	}

	service.logger.InfoContext(context, "user_signed_in",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
		slog.Bool("remember_me", input.RememberMe),
	)

	return &SigninResult{
		User:         user,
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

/*
Signout ends the session that owns accessToken.

Returns:
  - bool: true if a session was removed, false if there was nothing to remove
  - error: Storage failures only
*/
func (service *Service) Signout(context context.Context, accessToken string) (removed bool, err error) {
	defer func() { service.observe(opSignout, err) }()

	if accessToken == "" {
		return false, nil
	}

	session, err := service.sessionRepository.FindByToken(context, accessToken)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("auth_service_signout_failed: %w", err)
	}

	if err := service.sessionRepository.Delete(context, session.ID); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("auth_service_signout_failed: %w", err)
	}

	service.logger.InfoContext(context, "user_signed_out",
		slog.String("user_id", session.UserID),
		slog.String("session_id", session.ID),
	)
	return true, nil
}

// TokenPair is the result of a refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

/*
RefreshAccessToken rotates both tokens of the session that owns refreshToken.

Description: The presented refresh token stops working as soon as the rotation
is stored. Concurrent refreshes of the same token are last-writer-wins. The
session's expiry moves to now plus the extended tier.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: The new tokens and expiry
  - error: Unauthorized if the token or its session is invalid
*/
func (service *Service) RefreshAccessToken(context context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func() { service.observe(opRefresh, err) }()

	claims, err := service.tokenProvider.DecodeFor(refreshToken, sec.PurposeRefresh)
	if err != nil {
		return nil, errInvalidRefresh
	}

	session, err := service.sessionRepository.FindByRefreshToken(context, refreshToken)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, errInvalidRefresh
		}
		return nil, fmt.Errorf("auth_service_refresh_failed: %w", err)
	}
	if session.UserID != claims.Subject {
		return nil, errInvalidRefresh
	}

	now := service.clock()
	if session.Expired(now) {
		if err := service.sessionRepository.Delete(context, session.ID); err != nil && !errors.Is(err, dberr.ErrNotFound) {
			return nil, fmt.Errorf("auth_service_refresh_failed: %w", err)
		}
		return nil, errInvalidRefresh
	}

	user, err := service.userRepository.FindByID(context, claims.Subject)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, errInvalidRefresh
		}
		return nil, fmt.Errorf("auth_service_refresh_failed: %w", err)
	}

	ttl := service.policy.RememberTokenTTL
	accessToken, newRefreshToken, err := service.issuePair(user, ttl)
	if err != nil {
		return nil, err
	}

	session.SetTokens(accessToken, newRefreshToken)
	session.ExpiresAt = now.Add(ttl)

	if err := service.sessionRepository.Update(context, session); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, errInvalidRefresh
		}
		return nil, fmt.Errorf("auth_service_refresh_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

/*
Authenticate resolves an access token to the calling principal.

Description: The token must be a valid access token AND still have a live
session, so signout and password changes revoke it immediately.

Returns:
  - *sec.Principal: The caller
  - error: Unauthorized when the token is rejected, other errors for infrastructure failures
*/
func (service *Service) Authenticate(context context.Context, accessToken string) (principal *sec.Principal, err error) {
	defer func() {
		if err != nil {
			service.observe(opAuthenticate, err)
		}
	}()

	claims, err := service.tokenProvider.DecodeFor(accessToken, sec.PurposeAccess)
	if err != nil {
		return nil, errInvalidSession
	}

	session, err := service.sessionRepository.FindByToken(context, accessToken)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, errInvalidSession
		}
		return nil, fmt.Errorf("auth_service_authenticate_failed: %w", err)
	}
	if session.UserID != claims.Subject || session.Expired(service.clock()) {
		return nil, errInvalidSession
	}

	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, errInvalidSession
		}
		return nil, fmt.Errorf("auth_service_authenticate_failed: %w", err)
	}

	return &sec.Principal{
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: session.ID,
	}, nil
}

// # Profile Management

// CurrentUser returns the account of an authenticated caller.
func (service *Service) CurrentUser(context context.Context, userID string) (*User, error) {
	return service.findUser(context, userID, "auth_service_current_user_failed")
}

// ProfileUpdate carries optional profile changes. A nil field is left as is;
// an empty optional string clears the column.
type ProfileUpdate struct {
	FullName  *string
	AvatarURL *string
	Timezone  *string
	Language  *string
}

/*
UpdateProfile applies the provided profile fields.

Parameters:
  - context: context.Context
  - userID: string
  - update: ProfileUpdate

Returns:
  - *User: The updated account
  - error: NotFound, Validation or storage errors
*/
func (service *Service) UpdateProfile(context context.Context, userID string, update ProfileUpdate) (user *User, err error) {
	defer func() { service.observe(opUpdateProfile, err) }()

	user, err = service.findUser(context, userID, "auth_service_update_profile_failed")
	if err != nil {
		return nil, err
	}

	validator := &validate.Validator{}
	if update.FullName != nil {
		fullName := normalizeName(*update.FullName)
		validator.
			MinLen(FieldFullName, fullName, MinFullNameLength).
			MaxLen(FieldFullName, fullName, MaxFullNameLength)
		user.FullName = fullName
	}
	if update.Timezone != nil {
		validator.MaxLen(FieldTimezone, *update.Timezone, 64)
	}
	if update.Language != nil {
		validator.MaxLen(FieldLanguage, *update.Language, 16)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	applyOptional(&user.AvatarURL, update.AvatarURL)
	applyOptional(&user.Timezone, update.Timezone)
	applyOptional(&user.Language, update.Language)

	if err := service.userRepository.Update(context, user); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("auth_service_update_profile_failed: %w", err)
	}
	return user, nil
}

func applyOptional(field **string, value *string) {
	if value == nil {
		return
	}
	if *value == "" {
		*field = nil
		return
	}
	*field = pointer.To(*value)
}

// # Password Management

/*
ChangePassword replaces the password of an authenticated user.

Description: Every session of the user is revoked afterwards, including the
one making the request.

Returns:
  - *User: The updated account
  - error: Unauthorized (wrong current password), Validation or storage errors
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword string) (user *User, err error) {
	defer func() { service.observe(opChangePassword, err) }()

	user, err = service.findUser(context, userID, "auth_service_change_password_failed")
	if err != nil {
		return nil, err
	}

	if !service.hasher.Verify(currentPassword, user.HashedPassword) {
		return nil, errWrongPassword
	}

	if err := validatePassword(FieldNewPassword, newPassword); err != nil {
		return nil, err
	}

	if err := service.replacePassword(context, user, newPassword, "auth_service_change_password_failed"); err != nil {
		return nil, err
	}
	return user, nil
}

/*
ForgotPassword issues a reset token for email and mails it.

Description: An unknown email is not an error; the caller cannot tell whether
the account exists.

Returns:
  - string: The reset token, or "" when no account matched
  - error: Storage or signing failures
*/
func (service *Service) ForgotPassword(context context.Context, email string) (token string, err error) {
	defer func() { service.observe(opForgotPassword, err) }()

	user, err := service.userRepository.FindByEmail(context, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("auth_service_forgot_password_failed: %w", err)
	}

	token, err = service.tokenProvider.Issue(user.ID, sec.PurposeReset, service.policy.ResetTokenTTL)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("auth_service_issue_reset_failed: %w", err))
	}

	if service.mailer != nil {
		if err := service.mailer.SendPasswordReset(context, user.Email, token); err != nil {
			service.logger.WarnContext(context, "password_reset_mail_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
	}

	service.logger.InfoContext(context, "password_reset_requested", slog.String("user_id", user.ID))
	return token, nil
}

/*
ResetPassword sets a new password using a reset token.

Description: Each reset token works once. All sessions of the user are
revoked afterwards.

Returns:
  - *User: The updated account
  - error: Validation, Unauthorized (bad or spent token), NotFound or storage errors
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) (user *User, err error) {
	defer func() { service.observe(opResetPassword, err) }()

	if err := validatePassword(FieldNewPassword, newPassword); err != nil {
		return nil, err
	}

	claims, err := service.tokenProvider.DecodeFor(token, sec.PurposeReset)
	if err != nil {
		return nil, errInvalidReset
	}

	user, err = service.findUser(context, claims.Subject, "auth_service_reset_password_failed")
	if err != nil {
		return nil, err
	}

	if service.resetLedger != nil {
		remaining := claims.ExpiresAt.Sub(service.clock())
		claimed, err := service.resetLedger.Consume(context, claims.ID, remaining)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("auth_service_reset_password_failed: %w", err))
		}
		if !claimed {
			return nil, errResetTokenUsed
		}
	}

	if err := service.replacePassword(context, user, newPassword, "auth_service_reset_password_failed"); err != nil {
		return nil, err
	}
	return user, nil
}

// replacePassword stores a new hash and revokes every session of the user.
func (service *Service) replacePassword(context context.Context, user *User, newPassword, failure string) error {
	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	user.HashedPassword = hashedPassword
	if err := service.userRepository.Update(context, user); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("%s: %w", failure, err)
	}

	revoked, err := service.sessionRepository.DeleteAllForUser(context, user.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", failure, err)
	}

	service.logger.InfoContext(context, "password_replaced",
		slog.String("user_id", user.ID),
		slog.Int64("sessions_revoked", revoked),
	)
	return nil
}

// # Email Verification

// VerifyEmailWithToken marks the token's user as verified. Verifying twice is a no-op.
func (service *Service) VerifyEmailWithToken(context context.Context, token string) (user *User, err error) {
	defer func() { service.observe(opVerifyEmail, err) }()

	claims, err := service.tokenProvider.DecodeFor(token, sec.PurposeVerify)
	if err != nil {
		return nil, errInvalidVerify
	}

	user, err = service.findUser(context, claims.Subject, "auth_service_verify_email_failed")
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return user, nil
	}

	user.EmailVerified = true
	if err := service.userRepository.Update(context, user); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}
	return user, nil
}

// ResendVerification mails a fresh verification link to an unverified user.
func (service *Service) ResendVerification(context context.Context, userID string) (err error) {
	defer func() { service.observe(opResendVerification, err) }()

	user, err := service.findUser(context, userID, "auth_service_resend_verification_failed")
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return validate.RequiredError(FieldEmail, "Email is already verified")
	}

	service.sendVerification(context, user)
	return nil
}

// sendVerification issues a verification token and mails it. Failures are
// logged and never undo the caller's work.
func (service *Service) sendVerification(context context.Context, user *User) {
	if service.mailer == nil {
		return
	}

	token, err := service.tokenProvider.Issue(user.ID, sec.PurposeVerify, service.policy.VerificationTokenTTL)
	if err != nil {
		service.logger.WarnContext(context, "verification_token_issue_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return
	}

	if err := service.mailer.SendVerification(context, user.Email, token); err != nil {
		service.logger.WarnContext(context, "verification_mail_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
}

// # Helpers

func (service *Service) issuePair(user *User, accessTTL time.Duration) (string, string, error) {
	accessToken, err := service.tokenProvider.IssueAccess(user.ID, user.Email, accessTTL)
	if err != nil {
		return "", "", apperr.Internal(fmt.Errorf("auth_service_issue_access_failed: %w", err))
	}

	refreshToken, err := service.tokenProvider.Issue(user.ID, sec.PurposeRefresh, service.policy.RememberTokenTTL)
	if err != nil {
		return "", "", apperr.Internal(fmt.Errorf("auth_service_issue_refresh_failed: %w", err))
	}

	return accessToken, refreshToken, nil
}

func (service *Service) findUser(context context.Context, userID, failure string) (*User, error) {
	if !uuid.Valid(userID) {
		return nil, errUserNotFound
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", failure, err)
	}
	return user, nil
}

func validatePassword(field, password string) error {
	return (&validate.Validator{}).MinLen(field, password, MinPasswordLength).Err()
}

// observe records the outcome of an operation.
func (service *Service) observe(operation string, err error) {
	service.metrics.RecordAuth(operation, outcomeOf(err))
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	appErr := apperr.As(err)
	if appErr == nil {
		return metrics.OutcomeError
	}
	switch appErr.Code {
	case apperr.CodeValidation:
		return metrics.OutcomeInvalid
	case apperr.CodeUnauthorized:
		return metrics.OutcomeUnauthorized
	case apperr.CodeConflict:
		return metrics.OutcomeConflict
	case apperr.CodeNotFound:
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
