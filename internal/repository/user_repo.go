package repository

import (
	"database/sql"
	"fmt"
	"time"

	"tenxdev/internal/database"
	"tenxdev/internal/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, username, password_hash, is_admin,
		COALESCE(reset_token, ''), COALESCE(reset_token_expiry, 0), created_at, updated_at`

// CreateUser inserts a new user into the database
func (r *UserRepository) CreateUser(email, username, passwordHash string, isAdmin bool) (*models.User, error) {
	query := `
		INSERT INTO users (email, username, password_hash, is_admin)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, email, username, passwordHash, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	return r.getUserWhere("email = ?", email)
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(id int64) (*models.User, error) {
	return r.getUserWhere("id = ?", id)
}

// GetUserByResetToken retrieves the user holding a password reset token
func (r *UserRepository) GetUserByResetToken(token string) (*models.User, error) {
	return r.getUserWhere("reset_token = ?", token)
}

func (r *UserRepository) getUserWhere(where string, arg interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where

	user := &models.User{}
	err := r.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.ResetToken,
		&user.ResetTokenExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateUser updates a user's identity fields
func (r *UserRepository) UpdateUser(id int64, email, username string, isAdmin bool) error {
	query := `
		UPDATE users
		SET email = ?, username = ?, is_admin = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, email, username, isAdmin, id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SetResetToken stores a password reset token and its expiry on the user row
func (r *UserRepository) SetResetToken(id int64, token string, expiresAt int64) error {
	query := `
		UPDATE users
		SET reset_token = ?, reset_token_expiry = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, token, expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

// ResetPassword replaces the stored hash and clears the reset token in the
// same update so a token can never be redeemed twice.
func (r *UserRepository) ResetPassword(id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}

// DeleteUser deletes a user and all associated sessions and request history
func (r *UserRepository) DeleteUser(id int64) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE user_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	if _, err := r.db.Exec("DELETE FROM requests WHERE user_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user requests: %w", err)
	}
	if _, err := r.db.Exec("DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
