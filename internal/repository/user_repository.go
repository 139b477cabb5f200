package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
)

// UserRepository provides data access methods for the users and session tables.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository with the provided database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// InsertUser stores u. Returns ErrEmailTaken if the email is already registered.
func (r *UserRepository) InsertUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}

	query := `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.CreatedAt.Format(timestampLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperrors.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email.
// Returns ErrUserNotFound if no such user exists.
func (r *UserRepository) GetUserByEmail(email string) (model.User, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`

	var u model.User
	var createdAtStr string
	err := r.db.QueryRow(query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAtStr)
	if err == sql.ErrNoRows {
		return model.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to scan users table results: %w", err)
	}

	u.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// InsertSession stores a new session.
func (r *UserRepository) InsertSession(ctx context.Context, s *model.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}

	query := `
		INSERT INTO session (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.CreatedAt.Format(timestampLayout),
		s.ExpiresAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session together with its user's email.
// Returns ErrSessionNotFound if it does not exist.
func (r *UserRepository) GetSession(sessionID string) (model.Session, error) {
	query := `
		SELECT s.id, s.user_id, u.email, s.created_at, s.expires_at
		FROM session s
		INNER JOIN users u ON s.user_id = u.id
		WHERE s.id = ?
	`

	var s model.Session
	var createdAtStr, expiresAtStr string
	err := r.db.QueryRow(query, sessionID).Scan(&s.ID, &s.UserID, &s.Email, &createdAtStr, &expiresAtStr)
	if err == sql.ErrNoRows {
		return model.Session{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to scan session table results: %w", err)
	}

	if s.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Session{}, err
	}
	if s.ExpiresAt, err = ParseTime(expiresAtStr); err != nil {
		return model.Session{}, err
	}
	return s, nil
}

// DeleteSession removes a session.
// Returns ErrSessionNotFound if no record with the given ID exists.
func (r *UserRepository) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

// CountLiveSessions returns the number of sessions of a user that are
// still valid at the given time.
func (r *UserRepository) CountLiveSessions(userID string, at time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM session
		WHERE user_id = ? AND expires_at > ?
	`

	var n int
	if err := r.db.QueryRow(query, userID, at.UTC().Format(timestampLayout)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// DeleteExpiredSessions removes every session expired at the given time and
// returns the distinct IDs of the users that owned them.
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, at time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM session WHERE expires_at <= ? RETURNING user_id`,
		at.UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	userIDs := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan expired session: %w", err)
		}
		if !seen[userID] {
			seen[userID] = true
			userIDs = append(userIDs, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired sessions: %w", err)
	}
	return userIDs, nil
}
