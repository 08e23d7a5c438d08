// Package autherr defines the stable machine-readable error codes the auth
// core exposes to its callers, and the error type that carries them.
package autherr

import "net/http"

// Code identifies an auth failure to API clients. Codes are a contract:
// renaming one is a breaking change.
type Code string

const (
	CodeInvalidCredentials  Code = "INVALID_CREDENTIALS"
	CodeUserAlreadyExists   Code = "USER_ALREADY_EXISTS"
	CodeWeakPassword        Code = "WEAK_PASSWORD"
	CodeInvalidRefreshToken Code = "INVALID_REFRESH_TOKEN"
	CodeAccessTokenExpired  Code = "ACCESS_TOKEN_EXPIRED"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeMissingToken        Code = "MISSING_TOKEN"
	CodeMalformedAuthHeader Code = "MALFORMED_AUTH_HEADER"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is an auth failure with a stable code and a suggested HTTP status.
// Status mapping lives here rather than in handlers so every surface that
// serializes these errors agrees on it.
type Error struct {
	Code    Code
	Status  int
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// Predeclared errors for every expected auth outcome. Services return these
// (or wrap them); handlers serialize Code and Status verbatim.
var (
	ErrInvalidCredentials  = &Error{CodeInvalidCredentials, http.StatusUnauthorized, "invalid email or password"}
	ErrUserAlreadyExists   = &Error{CodeUserAlreadyExists, http.StatusConflict, "a user with this email already exists"}
	ErrWeakPassword        = &Error{CodeWeakPassword, http.StatusBadRequest, "password does not meet the strength policy"}
	ErrInvalidRefreshToken = &Error{CodeInvalidRefreshToken, http.StatusUnauthorized, "invalid or expired refresh token"}
	ErrAccessTokenExpired  = &Error{CodeAccessTokenExpired, http.StatusUnauthorized, "access token has expired"}
	ErrUnauthorized        = &Error{CodeUnauthorized, http.StatusUnauthorized, "invalid access token"}
	ErrUserNotFound        = &Error{CodeUserNotFound, http.StatusNotFound, "user not found"}
	ErrMissingToken        = &Error{CodeMissingToken, http.StatusUnauthorized, "authorization header is required"}
	ErrMalformedAuthHeader = &Error{CodeMalformedAuthHeader, http.StatusBadRequest, "authorization header must use the Bearer scheme"}
	ErrInternal            = &Error{CodeInternal, http.StatusInternalServerError, "internal error"}
)
