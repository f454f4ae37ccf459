package models

import "time"

// Request is one recorded code-generation call for a user
type Request struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// UserReport is the admin view of a user with their request volume
type UserReport struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	IsAdmin      bool   `json:"is_admin"`
	RequestCount int64  `json:"request_count"`
}
