package repository

import (
	"database/sql"
	"fmt"
	"time"

	"tenxdev/internal/database"
	"tenxdev/internal/models"
)

// NonceRepository handles database operations for login nonces
type NonceRepository struct {
	db *database.DB
}

// NewNonceRepository creates a new nonce repository
func NewNonceRepository(db *database.DB) *NonceRepository {
	return &NonceRepository{db: db}
}

// CreateNonce persists a nonce with its expiry
func (r *NonceRepository) CreateNonce(value string, expiresAt int64) (*models.Nonce, error) {
	now := time.Now().Unix()
	query := `
		INSERT INTO nonces (value, created_at, expires_at)
		VALUES (?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, value, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create nonce: %w", err)
	}

	return &models.Nonce{
		ID:        id,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// GetNonce retrieves a nonce by value
func (r *NonceRepository) GetNonce(value string) (*models.Nonce, error) {
	query := `
		SELECT id, value, created_at, expires_at
		FROM nonces
		WHERE value = ?
	`
	nonce := &models.Nonce{}
	err := r.db.QueryRow(query, value).Scan(
		&nonce.ID,
		&nonce.Value,
		&nonce.CreatedAt,
		&nonce.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	return nonce, nil
}

// DeleteNonce removes a nonce by value. Deleting an absent nonce is not an error.
func (r *NonceRepository) DeleteNonce(value string) error {
	_, err := r.db.Exec("DELETE FROM nonces WHERE value = ?", value)
	if err != nil {
		return fmt.Errorf("failed to delete nonce: %w", err)
	}
	return nil
}

// DeleteExpiredNonces removes all expired nonces
func (r *NonceRepository) DeleteExpiredNonces() error {
	_, err := r.db.Exec("DELETE FROM nonces WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to delete expired nonces: %w", err)
	}
	return nil
}
