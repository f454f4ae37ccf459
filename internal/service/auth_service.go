package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tenxdev/internal/models"
	"tenxdev/internal/repository"
	"tenxdev/internal/security"
	"tenxdev/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidResetToken  = errors.New("invalid reset token")
	ErrExpiredResetToken  = errors.New("reset token expired")
)

// AuthService handles the authentication and session lifecycle
type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	nonces      *NonceService
	tokens      *security.TokenManager
	bcryptCost  int
	resetTTL    time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, sessionRepo *repository.SessionRepository, nonces *NonceService, tokens *security.TokenManager, bcryptCost int, resetTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		nonces:      nonces,
		tokens:      tokens,
		bcryptCost:  bcryptCost,
		resetTTL:    resetTTL,
	}
}

// Register creates a new user account. The password arrives encrypted
// under the supplied nonce.
func (s *AuthService) Register(email, username, encryptedPassword, nonce string) (*models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonce(nonce); err != nil {
		return nil, err
	}

	if err := s.nonces.Redeem(nonce); err != nil {
		return nil, err
	}

	password, err := security.DecryptPassword(encryptedPassword, nonce)
	if err != nil {
		return nil, validation.ValidationError{Field: "password", Message: "could not decode password"}
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(email, username, passwordHash, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user and creates a session. A fresh login
// replaces any prior session for the user, so at most one is active.
// Failures never distinguish an unknown email from a wrong password.
func (s *AuthService) Login(email, encryptedPassword, nonce string) (*models.Session, *models.User, error) {
	if err := validation.ValidateNonce(nonce); err != nil {
		return nil, nil, err
	}
	if err := s.nonces.Redeem(nonce); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	password, decErr := security.DecryptPassword(encryptedPassword, nonce)

	if user == nil || decErr != nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.sessionRepo.DeleteUserSessions(user.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to clear prior sessions: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessionRepo.CreateSession(user.ID, token, expiresAt.Unix())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, user, nil
}

// ValidateSession verifies a session token cryptographically and against
// the persisted session row, returning the associated user. Both checks
// must pass: a token that verifies but whose session was revoked or has
// separately expired is rejected.
func (s *AuthService) ValidateSession(token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionRepo.GetSessionByToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.sessionRepo.DeleteSession(token)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	return user, nil
}

// Logout revokes the session matching a token. After revocation,
// ValidateSession on that token fails.
func (s *AuthService) Logout(token string) error {
	if err := s.sessionRepo.DeleteSession(token); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// RequestPasswordReset creates a reset token for the account and mails a
// reset link. An unknown email returns nil so the response shape never
// reveals whether the account exists; delivery failures are logged, not
// surfaced.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emails *EmailService, email string) error {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil
	}

	token := uuid.New().String()
	expiresAt := time.Now().Add(s.resetTTL).Unix()
	if err := s.userRepo.SetResetToken(user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	if emails != nil && emails.IsEnabled() {
		go func() {
			if err := emails.SendPasswordResetEmail(context.WithoutCancel(ctx), user.Email, user.Username, token); err != nil {
				log.Printf("Failed to send reset email to %s: %v", user.Email, err)
			}
		}()
	}

	return nil
}

// ResetPassword redeems a reset token and replaces the stored password
// hash. The new password travels encrypted under a nonce like every
// other credential. The hash update and the token clear happen in the
// same row update, so a token is single-use.
func (s *AuthService) ResetPassword(resetToken, encryptedPassword, nonce string) error {
	if err := validation.ValidateNonce(nonce); err != nil {
		return err
	}
	if err := s.nonces.Redeem(nonce); err != nil {
		return err
	}

	user, err := s.userRepo.GetUserByResetToken(resetToken)
	if err != nil {
		return fmt.Errorf("failed to get user by reset token: %w", err)
	}
	if user == nil {
		return ErrInvalidResetToken
	}
	if user.ResetTokenExpired() {
		return ErrExpiredResetToken
	}

	password, err := security.DecryptPassword(encryptedPassword, nonce)
	if err != nil {
		return validation.ValidationError{Field: "password", Message: "could not decode password"}
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.ResetPassword(user.ID, passwordHash); err != nil {
		return err
	}

	// force re-login everywhere after a password change
	if err := s.sessionRepo.DeleteUserSessions(user.ID); err != nil {
		log.Printf("Failed to clear sessions after password reset for user %d: %v", user.ID, err)
	}

	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() error {
	if err := s.sessionRepo.DeleteExpiredSessions(); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return nil
}

// EnsureUser creates an account with the given role if the email is not
// registered yet. Used to seed the well-known accounts at startup.
func (s *AuthService) EnsureUser(email, username, password string, isAdmin bool) error {
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to check seed user: %w", err)
	}
	if existing != nil {
		return nil
	}

	passwordHash, err := security.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	if _, err := s.userRepo.CreateUser(email, username, passwordHash, isAdmin); err != nil {
		return fmt.Errorf("failed to create seed user: %w", err)
	}

	return nil
}
