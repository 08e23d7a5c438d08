// Package auth implements the top-level credential flows: register, login,
// refresh, logout, and logout-all, composing the token codec, the session
// manager, and the user directory.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"deviceauth/internal/autherr"
	"deviceauth/internal/metrics"
	"deviceauth/internal/security"
	sessiondomain "deviceauth/internal/session/domain"
	sessionservice "deviceauth/internal/session/service"
	"deviceauth/internal/token"
	userdomain "deviceauth/internal/user/domain"
)

// defaultDeviceID is recorded when a client does not identify its device.
// All such logins share one session slot, so an unidentified login
// supersedes the previous unidentified one.
const defaultDeviceID = "unknown-device"

// UserDirectory is the minimal user lookup/creation capability the engine
// needs. The engine reads users and creates them on register; it never
// mutates an existing row.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// Principal is the identity the request guard attaches to the context after
// a successful access-token check.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Result is the outcome of a successful register or login: an atomically
// issued token pair plus the sanitized user projection.
type Result struct {
	User userdomain.Public `json:"user"`
	Pair *token.Pair       `json:"tokens"`
}

// Credentials are the register/login inputs. DeviceID, UserAgent, and
// IPAddress are optional request metadata recorded on the session.
type Credentials struct {
	Email     string
	Password  string
	Role      string // register only; defaults to "user"
	DeviceID  string
	UserAgent string
	IPAddress string
}

// Engine implements the credential flows. All operations decide
// synchronously from current store state; nothing is retried.
type Engine struct {
	users    UserDirectory
	codec    *token.Codec
	sessions *sessionservice.Manager
	hasher   *security.Hasher
	log      *slog.Logger
	tracer   trace.Tracer
}

// NewEngine returns an Engine with the given dependencies.
func NewEngine(users UserDirectory, codec *token.Codec, sessions *sessionservice.Manager, hasher *security.Hasher, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		users:    users,
		codec:    codec,
		sessions: sessions,
		hasher:   hasher,
		log:      log,
		tracer:   otel.Tracer("deviceauth/internal/auth"),
	}
}

// Register creates a user and logs them in, returning a fresh token pair and
// the sanitized user. Fails with USER_ALREADY_EXISTS when the email is taken
// (the directory is not mutated) and WEAK_PASSWORD when the password does
// not satisfy the policy. The user row always exists before any session
// record; a mint failure after user creation surfaces as INTERNAL_ERROR
// (orphaned user is acceptable, no rollback is assumed).
func (e *Engine) Register(ctx context.Context, creds Credentials) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "auth.Register")
	defer span.End()

	email := normalizeEmail(creds.Email)
	existing, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, err
	}
	if existing != nil {
		metrics.Registrations.WithLabelValues("exists").Inc()
		return nil, autherr.ErrUserAlreadyExists
	}
	if !security.ValidPassword(creds.Password) {
		metrics.Registrations.WithLabelValues("weak_password").Inc()
		return nil, autherr.ErrWeakPassword
	}

	hash, err := e.hasher.Hash([]byte(creds.Password))
	if err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, err
	}
	role := creds.Role
	if role == "" {
		role = userdomain.DefaultRole
	}
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := u.Validate(); err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := e.users.Create(ctx, u); err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return nil, err
	}

	res, err := e.issue(ctx, u, creds)
	if err != nil {
		// The user row exists but tokens could not be issued.
		metrics.Registrations.WithLabelValues("error").Inc()
		e.log.Error("token issue failed after user creation", "user_id", u.ID, "err", err)
		return nil, autherr.ErrInternal
	}
	metrics.Registrations.WithLabelValues("ok").Inc()
	e.log.Info("user registered", "user_id", u.ID)
	return res, nil
}

// Login authenticates email/password and starts a device-scoped session.
// Unknown email and wrong password both fail with INVALID_CREDENTIALS so
// user existence is never leaked.
func (e *Engine) Login(ctx context.Context, creds Credentials) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "auth.Login")
	defer span.End()

	u, err := e.users.GetByEmail(ctx, normalizeEmail(creds.Email))
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}
	if u == nil {
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		return nil, autherr.ErrInvalidCredentials
	}
	if err := e.hasher.Compare(u.PasswordHash, []byte(creds.Password)); err != nil {
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		return nil, autherr.ErrInvalidCredentials
	}

	res, err := e.issue(ctx, u, creds)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Logins.WithLabelValues("ok").Inc()
	e.log.Info("user logged in", "user_id", u.ID)
	return res, nil
}

// Refresh verifies refreshToken as REFRESH kind and mints a brand-new token
// pair, rotating the stored pair on the owning session in place. Every
// failure - expired, wrong kind, unknown user, no live session - collapses
// to INVALID_REFRESH_TOKEN so the cause is not leaked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	ctx, span := e.tracer.Start(ctx, "auth.Refresh")
	defer span.End()

	payload, err := e.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		metrics.Refreshes.WithLabelValues("invalid").Inc()
		return nil, autherr.ErrInvalidRefreshToken
	}
	u, err := e.users.GetByID(ctx, payload.UserID)
	if err != nil {
		metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, err
	}
	if u == nil {
		metrics.Refreshes.WithLabelValues("invalid").Inc()
		return nil, autherr.ErrInvalidRefreshToken
	}
	sess, err := e.sessions.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sessionservice.ErrSessionInvalid) {
			metrics.Refreshes.WithLabelValues("invalid").Inc()
			return nil, autherr.ErrInvalidRefreshToken
		}
		metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	pair, err := e.codec.MintPair(token.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := e.sessions.RotateTokens(ctx, sess.ID, pair); err != nil {
		metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Refreshes.WithLabelValues("ok").Inc()
	return pair, nil
}

// Logout ends the session holding accessToken. Best-effort and idempotent:
// a missing session is not an error, and store failures are logged rather
// than surfaced.
func (e *Engine) Logout(ctx context.Context, accessToken string) {
	if err := e.sessions.End(ctx, accessToken); err != nil {
		e.log.Warn("logout failed", "err", err)
	}
}

// LogoutAll ends every active session for the user across all devices.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	return e.sessions.EndAll(ctx, userID)
}

// LogoutOthers ends the user's sessions on every device except the one
// holding accessToken. Fails UNAUTHORIZED when no live session holds the
// token: without the session there is no device to exempt.
func (e *Engine) LogoutOthers(ctx context.Context, accessToken string) error {
	sess, err := e.sessions.ValidateAccess(ctx, accessToken)
	if err != nil {
		if errors.Is(err, sessionservice.ErrSessionInvalid) {
			return autherr.ErrUnauthorized
		}
		return err
	}
	return e.sessions.EndOthers(ctx, sess.UserID, sess.DeviceID)
}

// Profile is a pure projection of an already-resolved principal; no store
// access happens here.
func (e *Engine) Profile(p Principal) userdomain.Public {
	return userdomain.Public{ID: p.UserID, Email: p.Email, Role: p.Role}
}

// ActiveSessions lists the user's active sessions, most recently active first.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return e.sessions.ListForUser(ctx, userID)
}

// issue mints a token pair and starts the device-scoped session. Shared by
// Register and Login so both flows behave identically after the credential
// check.
func (e *Engine) issue(ctx context.Context, u *userdomain.User, creds Credentials) (*Result, error) {
	pair, err := e.codec.MintPair(token.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, err
	}
	deviceID := strings.TrimSpace(creds.DeviceID)
	if deviceID == "" {
		deviceID = defaultDeviceID
	}
	meta := sessionservice.Meta{UserAgent: creds.UserAgent, IPAddress: creds.IPAddress}
	if _, err := e.sessions.Start(ctx, u.ID, deviceID, pair, meta); err != nil {
		return nil, err
	}
	pub := u.Sanitized()
	return &Result{User: pub, Pair: pair}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
