package middleware

import (
	"context"

	"deviceauth/internal/auth"
)

type contextKey struct{ name string }

var (
	principalKey = contextKey{"principal"}
	tokenKey     = contextKey{"access_token"}
)

// WithPrincipal returns a context carrying the resolved principal and the
// raw access token it was resolved from.
func WithPrincipal(ctx context.Context, p auth.Principal, accessToken string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	ctx = context.WithValue(ctx, tokenKey, accessToken)
	return ctx
}

// GetPrincipal returns the principal from ctx and true if set.
func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

// GetAccessToken returns the raw bearer token from ctx and true if set.
func GetAccessToken(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok
}
