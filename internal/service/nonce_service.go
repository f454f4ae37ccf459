package service

import (
	"errors"
	"fmt"
	"time"

	"tenxdev/internal/repository"
	"tenxdev/internal/security"
)

var (
	ErrInvalidNonce = errors.New("invalid nonce")
	ErrExpiredNonce = errors.New("nonce expired")
)

// NonceService issues and redeems the single-use values clients use to
// encrypt passwords in transit.
type NonceService struct {
	nonceRepo *repository.NonceRepository
	ttl       time.Duration
}

// NewNonceService creates a new nonce service
func NewNonceService(nonceRepo *repository.NonceRepository, ttl time.Duration) *NonceService {
	return &NonceService{nonceRepo: nonceRepo, ttl: ttl}
}

// Issue generates a fresh nonce, persists it with its expiry and returns
// the value.
func (s *NonceService) Issue() (string, error) {
	value, err := security.GenerateNonce()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(s.ttl).Unix()
	if _, err := s.nonceRepo.CreateNonce(value, expiresAt); err != nil {
		return "", fmt.Errorf("failed to persist nonce: %w", err)
	}

	return value, nil
}

// Redeem consumes a nonce. An unknown value fails with ErrInvalidNonce;
// a value past its expiry is deleted and fails with ErrExpiredNonce even
// though the row was still present. A redeemed nonce is deleted and can
// never validate a second request.
func (s *NonceService) Redeem(value string) error {
	nonce, err := s.nonceRepo.GetNonce(value)
	if err != nil {
		return err
	}
	if nonce == nil {
		return ErrInvalidNonce
	}

	if nonce.IsExpired() {
		_ = s.nonceRepo.DeleteNonce(value)
		return ErrExpiredNonce
	}

	return s.nonceRepo.DeleteNonce(value)
}

// SweepExpired removes expired nonces. Best effort; Redeem re-checks
// expiry regardless.
func (s *NonceService) SweepExpired() error {
	return s.nonceRepo.DeleteExpiredNonces()
}
