package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"tenxdev/internal/repository"
	"tenxdev/internal/service"
)

// UserHandler handles the authenticated user endpoints
type UserHandler struct {
	requestRepo    *repository.RequestRepository
	codegenService *service.CodegenService
}

// NewUserHandler creates a new user handler
func NewUserHandler(requestRepo *repository.RequestRepository, codegenService *service.CodegenService) *UserHandler {
	return &UserHandler{
		requestRepo:    requestRepo,
		codegenService: codegenService,
	}
}

// UserInfo returns the authenticated identity and its request volume
func (h *UserHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	count, err := h.requestRepo.CountByUser(user.ID)
	if err != nil {
		serverError(w, "Failed to count requests", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":          user,
		"request_count": count,
	})
}

type chatRequest struct {
	Program  string `json:"program"`
	Language string `json:"language"`
}

// Chat generates code for the user and records the call
func (h *UserHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrMsgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Program) == "" || strings.TrimSpace(req.Language) == "" {
		writeError(w, http.StatusBadRequest, "program and language are required")
		return
	}

	code, count, err := h.codegenService.GenerateForUser(r.Context(), user.ID, req.Program, req.Language)
	if err != nil {
		serverError(w, "Code generation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":  code,
		"count": count,
	})
}
