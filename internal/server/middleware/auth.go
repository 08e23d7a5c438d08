// Package middleware contains the per-request guard that authenticates
// bearer tokens and attaches the resolved principal to the request context.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"deviceauth/internal/auth"
	"deviceauth/internal/autherr"
	"deviceauth/internal/metrics"
	"deviceauth/internal/server/respond"
	sessionservice "deviceauth/internal/session/service"
	"deviceauth/internal/token"
)

// bearerScheme must match exactly; other schemes are malformed, not merely
// unauthorized.
const bearerScheme = "Bearer"

// Authenticator is the request guard. It verifies the access token
// statelessly via the codec and resolves the principal from the user
// directory. When sessions is non-nil the guard additionally requires a
// live session for the token, trading one store read per request for
// immediate logout semantics.
type Authenticator struct {
	codec    *token.Codec
	users    auth.UserDirectory
	sessions *sessionservice.Manager // nil for the stateless fast path
}

// NewAuthenticator returns a stateless-verification guard.
func NewAuthenticator(codec *token.Codec, users auth.UserDirectory) *Authenticator {
	return &Authenticator{codec: codec, users: users}
}

// NewAuthenticatorWithLiveSession returns a guard that also checks session
// liveness on every request.
func NewAuthenticatorWithLiveSession(codec *token.Codec, users auth.UserDirectory, sessions *sessionservice.Manager) *Authenticator {
	return &Authenticator{codec: codec, users: users, sessions: sessions}
}

// Require wraps next so it only runs for authenticated requests. On success
// the principal and raw token are attached to the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := extractBearer(r)
		if err != nil {
			if errors.Is(err, autherr.ErrMissingToken) {
				metrics.GuardDecisions.WithLabelValues("missing_token").Inc()
			} else {
				metrics.GuardDecisions.WithLabelValues("malformed_header").Inc()
			}
			respond.Error(w, err)
			return
		}

		payload, err := a.codec.Verify(raw, token.KindAccess)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				metrics.GuardDecisions.WithLabelValues("expired").Inc()
				respond.Error(w, autherr.ErrAccessTokenExpired)
				return
			}
			metrics.GuardDecisions.WithLabelValues("unauthorized").Inc()
			respond.Error(w, autherr.ErrUnauthorized)
			return
		}

		u, err := a.users.GetByID(r.Context(), payload.UserID)
		if err != nil {
			respond.Error(w, err)
			return
		}
		if u == nil {
			// The account was deleted after the token was issued.
			metrics.GuardDecisions.WithLabelValues("user_not_found").Inc()
			respond.Error(w, autherr.ErrUserNotFound)
			return
		}

		if a.sessions != nil {
			if _, err := a.sessions.ValidateAccess(r.Context(), raw); err != nil {
				metrics.GuardDecisions.WithLabelValues("unauthorized").Inc()
				respond.Error(w, autherr.ErrUnauthorized)
				return
			}
		}

		metrics.GuardDecisions.WithLabelValues("ok").Inc()
		p := auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p, raw)))
	})
}

// extractBearer returns the bearer token from the Authorization header.
// Missing header and malformed scheme are distinct failures.
func extractBearer(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", autherr.ErrMissingToken
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || scheme != bearerScheme {
		return "", autherr.ErrMalformedAuthHeader
	}
	tok := strings.TrimSpace(rest)
	if tok == "" {
		return "", autherr.ErrMalformedAuthHeader
	}
	return tok, nil
}
