package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"deviceauth/internal/session/domain"
)

// PostgresRepository persists sessions in the sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, device_id, access_token, refresh_token,
	user_agent, ip_address, is_active, last_activity_at, created_at, updated_at`

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, device_id, access_token, refresh_token,
		   user_agent, ip_address, is_active, last_activity_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.UserID, s.DeviceID, s.AccessToken, s.RefreshToken,
		nullString(s.UserAgent), nullString(s.IPAddress), s.IsActive,
		nullTime(s.LastActivityAt), s.CreatedAt, s.UpdatedAt)
	return err
}

// FindByAccessToken returns the active session holding token, or nil if none.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindByAccessToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE access_token = $1 AND is_active", token)
	return scanSession(row)
}

// FindByRefreshToken returns the active session holding token, or nil if none.
func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE refresh_token = $1 AND is_active", token)
	return scanSession(row)
}

// FindActiveByUserAndDevice returns the user's active session on the device, or nil.
func (r *PostgresRepository) FindActiveByUserAndDevice(ctx context.Context, userID, deviceID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id = $1 AND device_id = $2 AND is_active",
		userID, deviceID)
	return scanSession(row)
}

// ListActiveByUser returns the user's active sessions, most recently active first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id = $1 AND is_active ORDER BY last_activity_at DESC NULLS LAST",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Deactivate marks the session with the given id as inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET is_active = FALSE, updated_at = now() WHERE id = $1", sessionID)
	return err
}

// DeactivateAllForUser marks every session for the user as inactive.
func (r *PostgresRepository) DeactivateAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET is_active = FALSE, updated_at = now() WHERE user_id = $1 AND is_active", userID)
	return err
}

// DeactivateForUserDevice marks the user's active sessions on one device as
// inactive. Sessions on other devices are untouched.
func (r *PostgresRepository) DeactivateForUserDevice(ctx context.Context, userID, deviceID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET is_active = FALSE, updated_at = now() WHERE user_id = $1 AND device_id = $2 AND is_active",
		userID, deviceID)
	return err
}

// DeactivateAllForUserExceptDevice marks the user's sessions on every other
// device as inactive in a single atomic update.
func (r *PostgresRepository) DeactivateAllForUserExceptDevice(ctx context.Context, userID, deviceID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET is_active = FALSE, updated_at = now() WHERE user_id = $1 AND device_id <> $2 AND is_active",
		userID, deviceID)
	return err
}

// Touch sets the session's last activity time.
func (r *PostgresRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET last_activity_at = $2, updated_at = now() WHERE id = $1", sessionID, at)
	return err
}

// UpdateTokens replaces the session's stored token pair on refresh rotation.
func (r *PostgresRepository) UpdateTokens(ctx context.Context, sessionID, accessToken, refreshToken string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET access_token = $2, refresh_token = $3, updated_at = now() WHERE id = $1",
		sessionID, accessToken, refreshToken)
	return err
}

// PurgeExpired deletes inactive sessions last updated before now-retention.
func (r *PostgresRepository) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE NOT is_active AND updated_at < $1",
		time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	s, err := scanSessionRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSessionRows(row rowScanner) (*domain.Session, error) {
	var (
		s            domain.Session
		userAgent    sql.NullString
		ipAddress    sql.NullString
		lastActivity sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.AccessToken, &s.RefreshToken,
		&userAgent, &ipAddress, &s.IsActive, &lastActivity, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.UserAgent = userAgent.String
	s.IPAddress = ipAddress.String
	if lastActivity.Valid {
		s.LastActivityAt = &lastActivity.Time
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
