package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/governance-console/internal/application"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error

	lastToken string
}

func (f *fakeSessionValidator) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	f.lastToken = token
	return f.principal, f.err
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			cookieToken    *http.Cookie
			headerToken    string
			queryToken     string
			validatorError error
			expectedStatus int
		}{
			{
				name:           "missing credentials",
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "expired session",
				headerToken:    "Bearer expired-token",
				validatorError: application.ErrSessionExpired,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "revoked session via cookie",
				cookieToken:    &http.Cookie{Name: "session_token", Value: "revoked-token"},
				validatorError: application.ErrSessionRevoked,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "unknown token",
				headerToken:    "Bearer unknown",
				validatorError: application.ErrNotFound,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "validator failure",
				headerToken:    "Bearer transient",
				validatorError: context.DeadlineExceeded,
				expectedStatus: http.StatusInternalServerError,
			},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookieToken != nil {
					req.AddCookie(tc.cookieToken)
				}
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}

				recorder := httptest.NewRecorder()
				validator := &fakeSessionValidator{err: tc.validatorError}

				handler := RequireSession(validator, testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("expected %d, got %d (%s)", tc.expectedStatus, recorder.Code, recorder.Body.String())
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		principal := application.Principal{UserID: "user-123", IsAdmin: true}
		validator := &fakeSessionValidator{principal: principal}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "valid-token"})
		recorder := httptest.NewRecorder()

		var captured application.Principal
		handler := RequireSession(validator, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if captured != principal {
			t.Fatalf("expected principal %+v, got %+v", principal, captured)
		}
		if validator.lastToken != "valid-token" {
			t.Fatalf("expected cookie token forwarded, got %q", validator.lastToken)
		}
	})

	t.Run("accepts the token query parameter for websocket clients", func(t *testing.T) {
		t.Parallel()

		validator := &fakeSessionValidator{principal: application.Principal{UserID: "user-1"}}

		req := httptest.NewRequest(http.MethodGet, "/api/notificaciones/ws?token=query-token", nil)
		recorder := httptest.NewRecorder()

		handler := RequireSession(validator, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if validator.lastToken != "query-token" {
			t.Fatalf("expected query token forwarded, got %q", validator.lastToken)
		}
	})
}
