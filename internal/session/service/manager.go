// Package service implements session lifecycle policy on top of the session
// repository: single-active-session-per-device, activity recording, and the
// retention sweep.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deviceauth/internal/metrics"
	"deviceauth/internal/session/domain"
	"deviceauth/internal/session/repository"
	"deviceauth/internal/token"
)

// ErrSessionInvalid is returned when no active session holds the presented
// token. Distinct from a cryptographically invalid token: a token can be
// well-signed yet belong to a session already logged out.
var ErrSessionInvalid = errors.New("session invalid or logged out")

// touchTimeout bounds a single fire-and-forget activity touch.
const touchTimeout = 5 * time.Second

// Meta is optional request metadata recorded on a new session.
type Meta struct {
	UserAgent string
	IPAddress string
}

// Manager orchestrates session creation and invalidation policy.
type Manager struct {
	sessions repository.Repository
	log      *slog.Logger
}

// NewManager returns a Manager using the given repository.
func NewManager(sessions repository.Repository, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{sessions: sessions, log: log}
}

// Start records a new active session for (userID, deviceID) holding pair.
// It first deactivates the user's prior session on that device, then inserts
// the new row. A second login from the same device supersedes the previous
// session for that device; other devices are untouched, so a user may hold
// one active session per device. The deactivate-before-insert ordering is
// what guarantees no window with two active sessions for one device.
func (m *Manager) Start(ctx context.Context, userID, deviceID string, pair *token.Pair, meta Meta) (*domain.Session, error) {
	if err := m.sessions.DeactivateForUserDevice(ctx, userID, deviceID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	s := &domain.Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		DeviceID:     deviceID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserAgent:    meta.UserAgent,
		IPAddress:    meta.IPAddress,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	m.log.Info("session started", "user_id", userID, "device_id", deviceID)
	return s, nil
}

// ValidateAccess resolves the active session holding accessToken. Returns
// ErrSessionInvalid when none exists. On success the session's activity is
// touched asynchronously; touch failure is logged and never affects the
// auth decision.
func (m *Manager) ValidateAccess(ctx context.Context, accessToken string) (*domain.Session, error) {
	s, err := m.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionInvalid
	}
	m.touchAsync(s.ID)
	return s, nil
}

// ValidateRefresh resolves the active session holding refreshToken. Returns
// ErrSessionInvalid when none exists. Refresh is not "use": activity is not
// touched.
func (m *Manager) ValidateRefresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	s, err := m.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionInvalid
	}
	return s, nil
}

// RotateTokens replaces the stored token pair on the session. Used on
// refresh so the row's tokens never go stale.
func (m *Manager) RotateTokens(ctx context.Context, sessionID string, pair *token.Pair) error {
	return m.sessions.UpdateTokens(ctx, sessionID, pair.AccessToken, pair.RefreshToken)
}

// End deactivates the session holding accessToken. A missing session is a
// no-op, not an error: logout is idempotent.
func (m *Manager) End(ctx context.Context, accessToken string) error {
	s, err := m.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	if err := m.sessions.Deactivate(ctx, s.ID); err != nil {
		return err
	}
	m.log.Info("session ended", "user_id", s.UserID, "device_id", s.DeviceID)
	return nil
}

// EndOthers deactivates the user's active sessions on every device except
// deviceID, in a single atomic update. The current device stays logged in.
func (m *Manager) EndOthers(ctx context.Context, userID, deviceID string) error {
	if err := m.sessions.DeactivateAllForUserExceptDevice(ctx, userID, deviceID); err != nil {
		return err
	}
	m.log.Info("other sessions ended", "user_id", userID, "device_id", deviceID)
	return nil
}

// EndAll deactivates every active session for the user, across all devices.
func (m *Manager) EndAll(ctx context.Context, userID string) error {
	if err := m.sessions.DeactivateAllForUser(ctx, userID); err != nil {
		return err
	}
	m.log.Info("all sessions ended", "user_id", userID)
	return nil
}

// ActiveOnDevice returns the user's active session on the device, or nil
// when the device is not logged in.
func (m *Manager) ActiveOnDevice(ctx context.Context, userID, deviceID string) (*domain.Session, error) {
	return m.sessions.FindActiveByUserAndDevice(ctx, userID, deviceID)
}

// ListForUser returns the user's active sessions, most recently active first.
func (m *Manager) ListForUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return m.sessions.ListActiveByUser(ctx, userID)
}

// Sweep deletes inactive sessions last updated before now-retention.
// Safe to run concurrently with live session operations.
func (m *Manager) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := m.sessions.PurgeExpired(ctx, retention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SessionsSwept.Add(float64(n))
		m.log.Info("expired sessions purged", "count", n)
	}
	return n, nil
}

// touchAsync updates last activity in a goroutine with a detached timeout
// context so request cancellation does not abort the write. Best-effort:
// errors are logged, never propagated.
func (m *Manager) touchAsync(sessionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()
		if err := m.sessions.Touch(ctx, sessionID, time.Now().UTC()); err != nil {
			m.log.Warn("session touch failed", "session_id", sessionID, "err", err)
		}
	}()
}
