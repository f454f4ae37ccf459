package models

import "time"

// User represents an account in the system
type User struct {
	ID               int64
	Email            string
	Username         string
	PasswordHash     string
	IsAdmin          bool
	ResetToken       string
	ResetTokenExpiry int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasResetToken reports whether a reset token is currently set
func (u *User) HasResetToken() bool {
	return u.ResetToken != ""
}

// ResetTokenExpired reports whether the reset token is past its expiry
func (u *User) ResetTokenExpired() bool {
	return time.Now().Unix() > u.ResetTokenExpiry
}

// Public returns the identity view exposed over the API
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
	}
}

// PublicUser is the reduced identity shape returned to clients.
// Internal storage columns are never exposed directly.
type PublicUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Session represents an authenticated session bound to a signed token
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	CreatedAt int64
	ExpiresAt int64
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().Unix() > s.ExpiresAt
}

// Nonce is a single-use random value handed to clients as a one-time
// symmetric key for passwords in transit
type Nonce struct {
	ID        int64
	Value     string
	CreatedAt int64
	ExpiresAt int64
}

// IsExpired checks if the nonce is past its expiry
func (n *Nonce) IsExpired() bool {
	return time.Now().Unix() > n.ExpiresAt
}
