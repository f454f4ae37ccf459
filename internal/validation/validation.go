package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError carries the failing field and a client-safe message
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if len(username) < 3 || len(username) > 30 {
		return ValidationError{Field: "username", Message: "username must be between 3 and 30 characters"}
	}
	return nil
}

// ValidatePassword checks if a decrypted password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 3 {
		return ValidationError{Field: "password", Message: "password must be at least 3 characters"}
	}
	return nil
}

// ValidateNonce checks the shape of a submitted nonce value
func ValidateNonce(nonce string) error {
	if nonce == "" {
		return ValidationError{Field: "nonce", Message: "nonce is required"}
	}
	return nil
}
