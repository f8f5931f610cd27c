// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/taskflow/internal/platform/middleware"
	"github.com/taibuivan/taskflow/internal/users/auth"
)

type apiClient struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newAPIClient(t *testing.T, h *harness, options auth.HandlerOptions) *apiClient {
	t.Helper()
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(h.service))
	router.Mount("/api/v1/auth", auth.NewHandler(h.service, options).Routes())
	return &apiClient{t: t, router: router, cookies: map[string]*http.Cookie{}}
}

// do sends a request carrying the cookies collected so far, like a browser.
func (c *apiClient) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	c.router.ServeHTTP(recorder, request)

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}

	return recorder, decodeBody(c.t, recorder)
}

// decodeBody returns the "data" object of a success envelope, or the error envelope itself.
func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if recorder.Body.Len() == 0 {
		return nil
	}
	var payload map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	if data, ok := payload["data"].(map[string]any); ok {
		return data
	}
	return payload
}

/*
TestHandler_SessionLifecycle drives signup, signin, /me, refresh and signout over HTTP.
*/
func TestHandler_SessionLifecycle(t *testing.T) {
	h := newHarness(t)
	client := newAPIClient(t, h, auth.HandlerOptions{})

	recorder, payload := client.do(http.MethodPost, "/api/v1/auth/signup", `{"email":"Alice@X.com","password":"password123","full_name":"Alice A"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "alice@x.com", payload["email"])
	assert.NotContains(t, payload, "hashed_password")

	recorder, payload = client.do(http.MethodPost, "/api/v1/auth/signin", `{"email":"alice@x.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Bearer", payload["token_type"])
	require.Contains(t, client.cookies, "access_token")
	require.Contains(t, client.cookies, "refresh_token")
	assert.True(t, client.cookies["access_token"].HttpOnly)
	assert.Equal(t, "/api/v1/auth", client.cookies["refresh_token"].Path)

	recorder, payload = client.do(http.MethodGet, "/api/v1/auth/me", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Alice A", payload["full_name"])

	previousAccess := client.cookies["access_token"].Value
	recorder, payload = client.do(http.MethodPost, "/api/v1/auth/refresh", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEqual(t, previousAccess, payload["access_token"])
	assert.Equal(t, payload["access_token"], client.cookies["access_token"].Value)

	recorder, _ = client.do(http.MethodPost, "/api/v1/auth/signout", "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, client.cookies)

	recorder, payload = client.do(http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "UNAUTHORIZED", payload["code"])
}

/*
TestHandler_StatusMapping verifies each error kind maps to its HTTP status.
*/
func TestHandler_StatusMapping(t *testing.T) {
	h := newHarness(t)
	h.signup(t, aliceEmail, alicePassword, aliceName)
	client := newAPIClient(t, h, auth.HandlerOptions{})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed json", "/api/v1/auth/signup", `{`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"short password", "/api/v1/auth/signup", `{"email":"bob@x.com","password":"short","full_name":"Bob B"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate", "/api/v1/auth/signup", `{"email":"alice@x.com","password":"password123","full_name":"Alice A"}`, http.StatusConflict, "CONFLICT"},
		{"bad credentials", "/api/v1/auth/signin", `{"email":"alice@x.com","password":"nope-nope"}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing refresh", "/api/v1/auth/refresh", ``, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad verify token", "/api/v1/auth/verify-email", `{"token":"garbage"}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing reset token", "/api/v1/auth/reset-password", `{"new_password":"password456"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder, payload := client.do(http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, tt.code, payload["code"])
		})
	}
}

/*
TestHandler_ForgotPasswordExposure verifies the reset token is echoed only when enabled.
*/
func TestHandler_ForgotPasswordExposure(t *testing.T) {
	tests := []struct {
		name    string
		expose  bool
		email   string
		wantKey bool
	}{
		{"hidden by default", false, aliceEmail, false},
		{"exposed when enabled", true, aliceEmail, true},
		{"unknown email never exposes", true, "nobody@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.signup(t, aliceEmail, alicePassword, aliceName)
			client := newAPIClient(t, h, auth.HandlerOptions{ExposeResetToken: tt.expose})

			recorder, payload := client.do(http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"`+tt.email+`"}`)

			require.Equal(t, http.StatusOK, recorder.Code)
			assert.NotEmpty(t, payload["message"])
			_, present := payload["reset_token"]
			assert.Equal(t, tt.wantKey, present)
		})
	}
}

/*
TestHandler_ChangePasswordClearsCookies verifies a password change ends the browser session.
*/
func TestHandler_ChangePasswordClearsCookies(t *testing.T) {
	h := newHarness(t)
	h.signup(t, aliceEmail, alicePassword, aliceName)
	client := newAPIClient(t, h, auth.HandlerOptions{})

	recorder, _ := client.do(http.MethodPost, "/api/v1/auth/signin", `{"email":"alice@x.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, payload := client.do(http.MethodPut, "/api/v1/auth/password", `{"current_password":"password123","new_password":"password456"}`)
	require.Equal(t, http.StatusOK, recorder.Code, "%v", payload)
	assert.Empty(t, client.cookies)
	assert.Zero(t, h.sessions.count())
}

/*
TestHandler_BearerProfileUpdate verifies non-browser clients can authenticate with a bearer header.
*/
func TestHandler_BearerProfileUpdate(t *testing.T) {
	h := newHarness(t)
	h.signup(t, aliceEmail, alicePassword, aliceName)
	result := h.signin(t, aliceEmail, alicePassword, false)
	client := newAPIClient(t, h, auth.HandlerOptions{})

	request := httptest.NewRequest(http.MethodPut, "/api/v1/auth/profile", strings.NewReader(`{"timezone":"Asia/Tokyo"}`))
	request.Header.Set("Authorization", "Bearer "+result.AccessToken)
	recorder := httptest.NewRecorder()
	client.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodeBody(t, recorder)
	assert.Equal(t, "Asia/Tokyo", payload["timezone"])
	assert.Equal(t, aliceName, payload["full_name"])
}
