// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away body decoding, bearer credential lookup and the
authenticated principal, ensuring consistent error handling across handlers.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/taibuivan/taskflow/internal/platform/apperr"
	"github.com/taibuivan/taskflow/internal/platform/constants"
	"github.com/taibuivan/taskflow/internal/platform/ctxutil"
	"github.com/taibuivan/taskflow/internal/platform/sec"
	"github.com/taibuivan/taskflow/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	if request.Body == nil {
		return validate.ErrInvalidJSON
	}
	decoder := json.NewDecoder(http.MaxBytesReader(nil, request.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
AccessToken returns the raw access token carried by the request.

The access_token cookie wins; an "Authorization: Bearer" header is the fallback
for non-browser clients. Returns "" when neither is present.
*/
func AccessToken(request *http.Request) string {
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return BearerToken(request)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, constants.AuthSchemeBearer) {
		return ""
	}
	return strings.TrimSpace(token)
}

// RefreshToken returns the refresh_token cookie value, or "" if absent.
func RefreshToken(request *http.Request) string {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

/*
RequiredPrincipal ensures the request is authenticated and returns the caller.

Returns:
  - *sec.Principal: The authenticated caller
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredPrincipal(request *http.Request) (*sec.Principal, error) {
	principal := ctxutil.GetAuthUser(request.Context())
	if principal == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return principal, nil
}

// RequiredUserID returns the ID of the currently logged-in user.
func RequiredUserID(request *http.Request) (string, error) {
	principal, err := RequiredPrincipal(request)
	if err != nil {
		return "", err
	}
	return principal.UserID, nil
}
