// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/taskflow/internal/platform/apperr"
	"github.com/taibuivan/taskflow/internal/platform/constants"
	"github.com/taibuivan/taskflow/internal/platform/middleware"
	requestutil "github.com/taibuivan/taskflow/internal/platform/request"
	"github.com/taibuivan/taskflow/internal/platform/respond"
	"github.com/taibuivan/taskflow/internal/platform/validate"
)

// # Definitions & Constructors

// HandlerOptions tune transport behaviour.
type HandlerOptions struct {
	// SecureCookies sets the Secure flag on auth cookies. Off only for plain-HTTP development.
	SecureCookies bool

	// ExposeResetToken echoes reset tokens in the forgot-password response.
	// Must never be enabled in production.
	ExposeResetToken bool
}

// Handler implements authentication-related HTTP endpoints.
//
// The handler acts as a thin mediation layer: it decodes payloads, checks
// presence of required fields, calls [Service] and manages the auth cookies.
type Handler struct {
	authService *Service
	options     HandlerOptions
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, options HandlerOptions) *Handler {
	return &Handler{authService: service, options: options}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /signup              : Creates a new account.
//   - POST /signin              : Opens a session and sets the auth cookies.
//   - POST /signout             : Ends the current session.
//   - POST /refresh             : Rotates the session tokens.
//   - POST /verify-email        : Confirms email ownership.
//   - POST /forgot-password     : Starts a password reset.
//   - POST /reset-password      : Completes a password reset.
//   - POST /resend-verification : Mails a new verification link (auth).
//   - GET  /me                  : Returns the caller (auth).
//   - PUT  /profile             : Updates profile fields (auth).
//   - PUT  /password            : Changes the password (auth).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signup)
	router.Post("/signin", handler.signin)
	router.Post("/signout", handler.signout)
	router.Post("/refresh", handler.refresh)
	router.Post("/verify-email", handler.verifyEmail)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/resend-verification", handler.resendVerification)
		r.Get("/me", handler.me)
		r.Put("/profile", handler.updateProfile)
		r.Put("/password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type signinRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type updateProfileRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Timezone  *string `json:"timezone"`
	Language  *string `json:"language"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// # Session Endpoints

/*
Signup handles the creation of a new user account.

POST /api/v1/auth/signup

Response:
  - 201: User: Created user profile
  - 400: Validation failure
  - 409: Email already exists
*/
func (handler *Handler) signup(writer http.ResponseWriter, request *http.Request) {
	var input signupRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Signup(request.Context(), SignupInput{
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
Signin authenticates the caller and opens a session.

POST /api/v1/auth/signin

Response:
  - 200: access_token, token_type, expires_at and user; both auth cookies are set
  - 401: Invalid email or password
*/
func (handler *Handler) signin(writer http.ResponseWriter, request *http.Request) {
	var input signinRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Signin(request.Context(), SigninInput{
		Email:      input.Email,
		Password:   input.Password,
		RememberMe: input.RememberMe,
		IPAddress:  middleware.RealIP(request),
		UserAgent:  request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAuthCookies(writer, result.AccessToken, result.RefreshToken, result.Session.ExpiresAt)

	respond.OK(writer, map[string]any{
		FieldAccessToken: result.AccessToken,
		FieldTokenType:   constants.AuthSchemeBearer,
		FieldExpiresAt:   result.Session.ExpiresAt,
		FieldUser:        result.User,
	})
}

/*
Signout terminates the current user session.

POST /api/v1/auth/signout

Description: Always succeeds. The session behind the presented access token
(if any) is deleted and both cookies are cleared.

Response:
  - 204: No Content
*/
func (handler *Handler) signout(writer http.ResponseWriter, request *http.Request) {
	if _, err := handler.authService.Signout(request.Context(), requestutil.AccessToken(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearAuthCookies(writer)
	respond.NoContent(writer)
}

/*
Refresh rotates the session tokens.

POST /api/v1/auth/refresh

Description: The refresh token is read from the refresh_token cookie, or from
a JSON body for non-browser clients.

Response:
  - 200: New access token credentials; cookies are replaced
  - 401: Missing or invalid refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken := requestutil.RefreshToken(request)
	if refreshToken == "" && request.ContentLength != 0 {
		var input refreshRequest
		if err := requestutil.DecodeJSON(request, &input); err == nil {
			refreshToken = input.RefreshToken
		}
	}
	if refreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token"))
		return
	}

	pair, err := handler.authService.RefreshAccessToken(request.Context(), refreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAuthCookies(writer, pair.AccessToken, pair.RefreshToken, pair.ExpiresAt)

	respond.OK(writer, map[string]any{
		FieldAccessToken: pair.AccessToken,
		FieldTokenType:   constants.AuthSchemeBearer,
		FieldExpiresAt:   pair.ExpiresAt,
	})
}

// # Verification & Recovery Endpoints

/*
VerifyEmail confirms a user's email ownership.

POST /api/v1/auth/verify-email

Response:
  - 200: User: The verified account
  - 400: Missing token
  - 401: Invalid or expired token
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input tokenRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "This field is required"))
		return
	}

	user, err := handler.authService.VerifyEmailWithToken(request.Context(), input.Token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// resendVerification mails a fresh verification link to the caller.
func (handler *Handler) resendVerification(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResendVerification(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, respond.SuccessEnvelope{Data: map[string]any{
		FieldMessage: "Verification email sent",
	}})
}

/*
ForgotPassword starts a password reset.

POST /api/v1/auth/forgot-password

Description: The response is identical whether or not the email is
registered. When token exposure is enabled the reset token is included.

Response:
  - 200: Generic confirmation message
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Email == "" {
		respond.Error(writer, request, validate.RequiredError(FieldEmail, "This field is required"))
		return
	}

	token, err := handler.authService.ForgotPassword(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := map[string]any{
		FieldMessage: "If the email is registered, a reset link has been sent",
	}
	if handler.options.ExposeResetToken && token != "" {
		payload[FieldResetToken] = token
	}
	respond.OK(writer, payload)
}

/*
ResetPassword completes a password reset.

POST /api/v1/auth/reset-password

Response:
  - 200: Confirmation message; every session of the user is revoked
  - 400: Password too short
  - 401: Invalid, expired or already used token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "This field is required"))
		return
	}

	if _, err := handler.authService.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage: "Password has been reset",
	})
}

// # Account Endpoints

// me returns the authenticated caller.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.CurrentUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
UpdateProfile changes the caller's profile.

PUT /api/v1/auth/profile

Description: Only fields present in the body are touched. An empty string
clears an optional field.

Response:
  - 200: User: The updated account
  - 400: Validation failure
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.UpdateProfile(request.Context(), userID, ProfileUpdate(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
ChangePassword replaces the caller's password.

PUT /api/v1/auth/password

Description: All sessions are revoked, so the auth cookies are cleared too.

Response:
  - 200: Confirmation message
  - 400: New password too short
  - 401: Current password is incorrect
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.authService.ChangePassword(request.Context(), userID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearAuthCookies(writer)
	respond.OK(writer, map[string]any{
		FieldMessage: "Password changed. Please sign in again",
	})
}

// # Cookies

func (handler *Handler) setAuthCookies(writer http.ResponseWriter, accessToken, refreshToken string, accessExpiresAt time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiresAt,
		Secure:   handler.options.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    refreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  time.Now().Add(handler.authService.policy.RememberTokenTTL),
		Secure:   handler.options.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler *Handler) clearAuthCookies(writer http.ResponseWriter) {
	for name, path := range map[string]string{
		constants.AccessTokenCookieName:  "/",
		constants.RefreshTokenCookieName: constants.RefreshTokenCookiePath,
	} {
		http.SetCookie(writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			Secure:   handler.options.SecureCookies,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
