// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultAccessTokenTTL is the short access-token tier (7 days).
	DefaultAccessTokenTTL = 7 * 24 * time.Hour

	// DefaultRememberTokenTTL is the extended tier used for remember-me sessions
	// and for every refresh token (30 days).
	DefaultRememberTokenTTL = 30 * 24 * time.Hour

	// VerificationTokenTTL is the lifetime of an email verification token.
	VerificationTokenTTL = 24 * time.Hour

	// ResetTokenTTL is the lifetime of a password reset token.
	ResetTokenTTL = 24 * time.Hour

	// MinPasswordLength is the minimum number of characters in a password.
	MinPasswordLength = 8

	// MinFullNameLength and MaxFullNameLength bound the trimmed full name.
	MinFullNameLength = 2
	MaxFullNameLength = 255
)

// # Operation Names

// Operation labels used for metrics and logs.
const (
	opSignup             = "signup"
	opSignin             = "signin"
	opSignout            = "signout"
	opRefresh            = "refresh"
	opUpdateProfile      = "update_profile"
	opChangePassword     = "change_password"
	opForgotPassword     = "forgot_password"
	opResetPassword      = "reset_password"
	opVerifyEmail        = "verify_email"
	opResendVerification = "resend_verification"
	opAuthenticate       = "authenticate"
)
