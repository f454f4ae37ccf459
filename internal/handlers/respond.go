package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tenxdev/internal/service"
	"tenxdev/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// serverError logs the underlying fault and returns the stable generic
// message; internals never reach the client.
func serverError(w http.ResponseWriter, logMsg string, err error) {
	log.Printf("%s: %v", logMsg, err)
	writeError(w, http.StatusInternalServerError, ErrMsgInternal)
}

// writeServiceError maps the known service failures onto the API error
// taxonomy. Anything unrecognized becomes a logged 500. Internal
// existence of rows is never leaked: absent and invalid collapse to the
// same message.
func writeServiceError(w http.ResponseWriter, logMsg string, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrInvalidNonce):
		writeError(w, http.StatusBadRequest, "invalid nonce")
	case errors.Is(err, service.ErrExpiredNonce):
		writeError(w, http.StatusBadRequest, "nonce expired")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ErrMsgInvalidCredentials)
	case errors.Is(err, service.ErrInvalidResetToken), errors.Is(err, service.ErrExpiredResetToken):
		writeError(w, http.StatusBadRequest, "invalid or expired reset token")
	default:
		serverError(w, logMsg, err)
	}
}
