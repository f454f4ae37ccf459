package handlers

import "net/http"

// NewRouter assembles the API route table
func NewRouter(m *Middleware, auth *AuthHandler, user *UserHandler, admin *AdminHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Credential endpoints, rate limited per client IP
	mux.HandleFunc("POST /getNonce", m.RateLimit(auth.GetNonce))
	mux.HandleFunc("POST /register", m.RateLimit(auth.Register))
	mux.HandleFunc("POST /login", m.RateLimit(auth.Login))
	mux.HandleFunc("POST /logout", auth.Logout)
	mux.HandleFunc("POST /resetPasswordRequest", m.RateLimit(auth.ResetPasswordRequest))
	mux.HandleFunc("POST /resetPassword", m.RateLimit(auth.ResetPassword))

	// Protected routes
	mux.HandleFunc("GET /protected/userInfo", m.RequireAuth(user.UserInfo))
	mux.HandleFunc("POST /protected/chat", m.RequireAuth(user.Chat))

	// Admin routes
	mux.HandleFunc("GET /admin/database", m.RequireAdmin(admin.Database))
	mux.HandleFunc("PUT /admin/update", m.RequireAdmin(admin.UpdateUser))
	mux.HandleFunc("DELETE /admin/delete", m.RequireAdmin(admin.DeleteUser))

	mux.HandleFunc("/", NotFound)

	return mux
}
