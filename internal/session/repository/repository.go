package repository

import (
	"context"
	"time"

	"deviceauth/internal/session/domain"
)

// Repository defines persistence for sessions. Pure storage, no policy: the
// session service owns ordering and lifecycle decisions. All deactivations
// are set-based updates, never read-then-write, so concurrent logins cannot
// lose each other's writes.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// FindByAccessToken returns the active session holding token, or nil.
	FindByAccessToken(ctx context.Context, token string) (*domain.Session, error)
	// FindByRefreshToken returns the active session holding token, or nil.
	FindByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	FindActiveByUserAndDevice(ctx context.Context, userID, deviceID string) (*domain.Session, error)
	// ListActiveByUser returns active sessions ordered by last activity, newest first.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Deactivate(ctx context.Context, sessionID string) error
	DeactivateAllForUser(ctx context.Context, userID string) error
	// DeactivateForUserDevice deactivates the user's active sessions on one
	// device; sessions on other devices are untouched.
	DeactivateForUserDevice(ctx context.Context, userID, deviceID string) error
	// DeactivateAllForUserExceptDevice deactivates the user's active sessions
	// on every device other than deviceID, in a single atomic update.
	DeactivateAllForUserExceptDevice(ctx context.Context, userID, deviceID string) error
	// Touch updates the session's last activity time; best-effort, callers
	// must not fail a request on its error.
	Touch(ctx context.Context, sessionID string, at time.Time) error
	// UpdateTokens replaces the stored token pair on refresh rotation.
	UpdateTokens(ctx context.Context, sessionID, accessToken, refreshToken string) error
	// PurgeExpired deletes inactive sessions last updated before now-retention.
	// Returns the number of rows deleted.
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}
