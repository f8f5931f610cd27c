// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"

	"github.com/taibuivan/taskflow/internal/platform/apperr"
	"github.com/taibuivan/taskflow/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/taskflow/internal/platform/request"
	"github.com/taibuivan/taskflow/internal/platform/respond"
	"github.com/taibuivan/taskflow/internal/platform/sec"
)

// Authenticator resolves a raw access token to a live principal.
//
// Implementations must check the backing session, not only the signature,
// so that revoked sessions stop authenticating immediately.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*sec.Principal, error)
}

// Authenticate resolves the caller from the access_token cookie or a Bearer header.
//
// # Flow
//  1. No credential: the request proceeds as anonymous.
//  2. Rejected credential (bad token, dead session): proceeds as anonymous,
//     so public routes such as signin keep working with a stale cookie.
//  3. Infrastructure failure: aborts with 500.
//  4. Success: the [*sec.Principal] is injected into the request context.
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token := requestutil.AccessToken(request)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Session Verification ───────────────────────────────────────
			principal, err := authenticator.Authenticate(request.Context(), token)
			if err != nil {
				if apperr.IsAppError(err) && !apperr.HasCode(err, apperr.CodeInternal) {
					next.ServeHTTP(writer, request)
					return
				}
				respond.Error(writer, request, err)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			if recorder, ok := writer.(*statusRecorder); ok {
				recorder.userID = principal.UserID
			}
			ctx := ctxutil.WithAuthUser(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
