package repository

import (
	"database/sql"
	"fmt"
	"time"

	"tenxdev/internal/database"
	"tenxdev/internal/models"
)

// SessionRepository handles database operations for sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession persists a session row for a user
func (r *SessionRepository) CreateSession(userID int64, token string, expiresAt int64) (*models.Session, error) {
	now := time.Now().Unix()
	query := `
		INSERT INTO sessions (user_id, token, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, userID, token, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// GetSessionByToken retrieves a session by its token
func (r *SessionRepository) GetSessionByToken(token string) (*models.Session, error) {
	query := `
		SELECT id, user_id, token, created_at, expires_at
		FROM sessions
		WHERE token = ?
	`
	session := &models.Session{}
	err := r.db.QueryRow(query, token).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.CreatedAt,
		&session.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteSession removes the session matching a token
func (r *SessionRepository) DeleteSession(token string) error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session belonging to a user
func (r *SessionRepository) DeleteUserSessions(userID int64) error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions
func (r *SessionRepository) DeleteExpiredSessions() error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
