package handlers

import (
	"encoding/json"
	"net/http"

	"tenxdev/internal/repository"
	"tenxdev/internal/validation"
)

// AdminHandler handles the admin management endpoints. All of them sit
// behind RequireAdmin.
type AdminHandler struct {
	userRepo    *repository.UserRepository
	requestRepo *repository.RequestRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userRepo *repository.UserRepository, requestRepo *repository.RequestRepository) *AdminHandler {
	return &AdminHandler{
		userRepo:    userRepo,
		requestRepo: requestRepo,
	}
}

// Database returns every user with their request volume plus the full
// request history.
func (h *AdminHandler) Database(w http.ResponseWriter, r *http.Request) {
	users, err := h.requestRepo.GetUserReports()
	if err != nil {
		serverError(w, "Failed to load user reports", err)
		return
	}

	requests, err := h.requestRepo.GetAllRequests()
	if err != nil {
		serverError(w, "Failed to load requests", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":    users,
		"requests": requests,
	})
}

type adminUpdateRequest struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// UpdateUser changes a user's identity fields
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		writeServiceError(w, "Admin update rejected", err)
		return
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		writeServiceError(w, "Admin update rejected", err)
		return
	}

	target, err := h.userRepo.GetUserByID(req.ID)
	if err != nil {
		serverError(w, "Failed to load user", err)
		return
	}
	if target == nil {
		writeError(w, http.StatusBadRequest, "no such user")
		return
	}

	holder, err := h.userRepo.GetUserByEmail(req.Email)
	if err != nil {
		serverError(w, "Failed to check email", err)
		return
	}
	if holder != nil && holder.ID != req.ID {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	}

	if err := h.userRepo.UpdateUser(req.ID, req.Email, req.Username, req.IsAdmin); err != nil {
		serverError(w, "Failed to update user", err)
		return
	}

	writeMessage(w, http.StatusOK, MsgUserUpdated)
}

type adminDeleteRequest struct {
	ID int64 `json:"id"`
}

// DeleteUser removes a user and everything that belongs to them. An
// admin cannot delete their own account, so the last admin can never
// lock themselves out mid-session.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req adminDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}

	if req.ID == user.ID {
		writeError(w, http.StatusBadRequest, ErrMsgCannotDeleteSelf)
		return
	}

	target, err := h.userRepo.GetUserByID(req.ID)
	if err != nil {
		serverError(w, "Failed to load user", err)
		return
	}
	if target == nil {
		writeError(w, http.StatusBadRequest, "no such user")
		return
	}

	if err := h.userRepo.DeleteUser(req.ID); err != nil {
		serverError(w, "Failed to delete user", err)
		return
	}

	writeMessage(w, http.StatusOK, MsgUserDeleted)
}
