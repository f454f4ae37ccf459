package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"tenxdev/internal/security"
	"tenxdev/internal/service"
)

// AuthHandler handles the authentication endpoints
type AuthHandler struct {
	authService  *service.AuthService
	nonceService *service.NonceService
	emailService *service.EmailService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, nonceService *service.NonceService, emailService *service.EmailService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		nonceService: nonceService,
		emailService: emailService,
	}
}

// GetNonce issues a fresh single-use nonce for encrypting a password in
// transit.
func (h *AuthHandler) GetNonce(w http.ResponseWriter, r *http.Request) {
	nonce, err := h.nonceService.Issue()
	if err != nil {
		serverError(w, "Failed to issue nonce", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"nonce": nonce})
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Nonce    string `json:"nonce"`
}

// Register creates a new account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}

	if _, err := h.authService.Register(req.Email, req.Username, req.Password, req.Nonce); err != nil {
		writeServiceError(w, "Register failed", err)
		return
	}

	writeMessage(w, http.StatusCreated, MsgRegistered)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nonce    string `json:"nonce"`
}

// Login authenticates a user and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}

	session, user, err := h.authService.Login(req.Email, req.Password, req.Nonce)
	if err != nil {
		writeServiceError(w, "Login failed", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.Token, time.Unix(session.ExpiresAt, 0)))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": MsgLoggedIn,
		"user":    user.Public(),
	})
}

// Logout revokes the current session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(cookie.Value); err != nil {
			serverError(w, "Logout failed", err)
			return
		}
		http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	}

	writeMessage(w, http.StatusOK, MsgLoggedOut)
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest starts the password reset flow. The response is
// identical whether or not the email is registered.
func (h *AuthHandler) ResetPasswordRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), h.emailService, req.Email); err != nil {
		serverError(w, "Reset password request failed", err)
		return
	}

	writeMessage(w, http.StatusOK, MsgResetRequest)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
	Nonce    string `json:"nonce"`
}

// ResetPassword redeems a reset token and sets the new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.Password, req.Nonce); err != nil {
		writeServiceError(w, "Reset password failed", err)
		return
	}

	writeMessage(w, http.StatusOK, MsgResetDone)
}

// NotFound is the JSON 404 fallback
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, ErrMsgNotFound)
}
