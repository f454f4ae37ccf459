package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"golang.org/x/crypto/bcrypt"

	"tenxdev/internal/database"
	"tenxdev/internal/repository"
	"tenxdev/internal/security"
	"tenxdev/internal/service"
)

// stubGenerator stands in for the chat completions client
type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, program, language string) (string, error) {
	return fmt.Sprintf("// %s in %s", program, language), nil
}

type apiEnv struct {
	router *http.ServeMux
	users  *repository.UserRepository
	nonces *service.NonceService
	auth   *service.AuthService
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	requests := repository.NewRequestRepository(db)

	nonces := service.NewNonceService(repository.NewNonceRepository(db), 5*time.Minute)
	tokens := security.NewTokenManager("test-secret", time.Hour)
	auth := service.NewAuthService(users, sessions, nonces, tokens, bcrypt.MinCost, time.Hour)
	codegen := service.NewCodegenService(stubGenerator{}, requests)

	m := NewMiddleware(auth, security.NewRateLimiter(1000, time.Minute))
	router := NewRouter(
		m,
		NewAuthHandler(auth, nonces, nil),
		NewUserHandler(requests, codegen),
		NewAdminHandler(users, requests),
	)

	return &apiEnv{router: router, users: users, nonces: nonces, auth: auth}
}

// credentials issues a nonce and encrypts password under it, the way the
// frontend does before posting a form.
func (e *apiEnv) credentials(t *testing.T, password string) (ciphertext, nonce string) {
	t.Helper()

	nonce, err := e.nonces.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	ciphertext, err = security.EncryptPassword(password, nonce)
	if err != nil {
		t.Fatalf("EncryptPassword() error = %v", err)
	}
	return ciphertext, nonce
}

func (e *apiEnv) register(t *testing.T, email, username, password string) {
	t.Helper()

	ciphertext, nonce := e.credentials(t, password)
	apitest.New().
		Handler(e.router).
		Post("/register").
		JSON(fmt.Sprintf(`{"email":%q,"username":%q,"password":%q,"nonce":%q}`, email, username, ciphertext, nonce)).
		Expect(t).
		Status(http.StatusCreated).
		End()
}

// login authenticates through the API and returns the session cookie value
func (e *apiEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	ciphertext, nonce := e.credentials(t, password)
	result := apitest.New().
		Handler(e.router).
		Post("/login").
		JSON(fmt.Sprintf(`{"email":%q,"password":%q,"nonce":%q}`, email, ciphertext, nonce)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, MsgLoggedIn)).
		End()

	for _, c := range result.Response.Cookies() {
		if c.Name == SessionCookieName && c.Value != "" {
			if !c.HttpOnly {
				t.Error("session cookie is not HttpOnly")
			}
			return c.Value
		}
	}
	t.Fatal("login response did not set a session cookie")
	return ""
}

func TestGetNonce(t *testing.T) {
	env := newAPIEnv(t)

	apitest.New().
		Handler(env.router).
		Post("/getNonce").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Present(`$.nonce`)).
		End()
}

func TestRegisterLoginUserInfoFlow(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "alice@example.com", "alice", "hunter22")
	token := env.login(t, "alice@example.com", "hunter22")

	apitest.New().
		Handler(env.router).
		Get("/protected/userInfo").
		Cookie(SessionCookieName, token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.user.email`, "alice@example.com")).
		Assert(jsonpath.Equal(`$.user.username`, "alice")).
		Assert(jsonpath.Equal(`$.user.is_admin`, false)).
		Assert(jsonpath.Equal(`$.request_count`, float64(0))).
		End()
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "alice@example.com", "alice", "hunter22")

	ciphertext, nonce := env.credentials(t, "wrong-password")
	apitest.New().
		Handler(env.router).
		Post("/login").
		JSON(fmt.Sprintf(`{"email":"alice@example.com","password":%q,"nonce":%q}`, ciphertext, nonce)).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal(`$.error`, ErrMsgInvalidCredentials)).
		End()
}

func TestLoginRejectsReusedNonce(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "alice@example.com", "alice", "hunter22")

	ciphertext, nonce := env.credentials(t, "hunter22")
	payload := fmt.Sprintf(`{"email":"alice@example.com","password":%q,"nonce":%q}`, ciphertext, nonce)

	apitest.New().
		Handler(env.router).
		Post("/login").
		JSON(payload).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(env.router).
		Post("/login").
		JSON(payload).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal(`$.error`, "invalid nonce")).
		End()
}

func TestProtectedRequiresSession(t *testing.T) {
	env := newAPIEnv(t)

	t.Run("no cookie", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Get("/protected/userInfo").
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(jsonpath.Equal(`$.error`, ErrMsgUnauthorized)).
			End()
	})

	t.Run("garbage cookie", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Get("/protected/userInfo").
			Cookie(SessionCookieName, "not-a-real-token").
			Expect(t).
			Status(http.StatusUnauthorized).
			End()
	})
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "alice@example.com", "alice", "hunter22")
	token := env.login(t, "alice@example.com", "hunter22")

	apitest.New().
		Handler(env.router).
		Post("/logout").
		Cookie(SessionCookieName, token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, MsgLoggedOut)).
		End()

	apitest.New().
		Handler(env.router).
		Get("/protected/userInfo").
		Cookie(SessionCookieName, token).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestChat(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "alice@example.com", "alice", "hunter22")
	token := env.login(t, "alice@example.com", "hunter22")

	apitest.New().
		Handler(env.router).
		Post("/protected/chat").
		Cookie(SessionCookieName, token).
		JSON(`{"program":"a fizzbuzz","language":"python"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.code`, "// a fizzbuzz in python")).
		Assert(jsonpath.Equal(`$.count`, float64(1))).
		End()

	t.Run("missing fields rejected", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Post("/protected/chat").
			Cookie(SessionCookieName, token).
			JSON(`{"program":"","language":"python"}`).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	})
}

func TestAdminEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	if err := env.auth.EnsureUser("admin@example.com", "admin", "admin-pass", true); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	env.register(t, "alice@example.com", "alice", "hunter22")

	adminToken := env.login(t, "admin@example.com", "admin-pass")
	userToken := env.login(t, "alice@example.com", "hunter22")

	admin, err := env.users.GetUserByEmail("admin@example.com")
	if err != nil || admin == nil {
		t.Fatalf("GetUserByEmail(admin) = %v, %v", admin, err)
	}
	alice, err := env.users.GetUserByEmail("alice@example.com")
	if err != nil || alice == nil {
		t.Fatalf("GetUserByEmail(alice) = %v, %v", alice, err)
	}

	t.Run("non-admin gets 403", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Get("/admin/database").
			Cookie(SessionCookieName, userToken).
			Expect(t).
			Status(http.StatusForbidden).
			Assert(jsonpath.Equal(`$.error`, ErrMsgForbidden)).
			End()
	})

	t.Run("database view", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Get("/admin/database").
			Cookie(SessionCookieName, adminToken).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Len(`$.users`, 2)).
			End()
	})

	t.Run("update user", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Put("/admin/update").
			Cookie(SessionCookieName, adminToken).
			JSON(fmt.Sprintf(`{"id":%d,"email":"alice@example.org","username":"alice2","is_admin":false}`, alice.ID)).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal(`$.message`, MsgUserUpdated)).
			End()

		updated, err := env.users.GetUserByID(alice.ID)
		if err != nil || updated == nil {
			t.Fatalf("GetUserByID() = %v, %v", updated, err)
		}
		if updated.Email != "alice@example.org" || updated.Username != "alice2" {
			t.Errorf("user after update = %+v", updated)
		}
	})

	t.Run("update to taken email rejected", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Put("/admin/update").
			Cookie(SessionCookieName, adminToken).
			JSON(fmt.Sprintf(`{"id":%d,"email":"admin@example.com","username":"alice2","is_admin":false}`, alice.ID)).
			Expect(t).
			Status(http.StatusBadRequest).
			Assert(jsonpath.Equal(`$.error`, "email already registered")).
			End()

		// keeping your own email is not a conflict
		apitest.New().
			Handler(env.router).
			Put("/admin/update").
			Cookie(SessionCookieName, adminToken).
			JSON(fmt.Sprintf(`{"id":%d,"email":"alice@example.org","username":"alice3","is_admin":false}`, alice.ID)).
			Expect(t).
			Status(http.StatusOK).
			End()
	})

	t.Run("update unknown user rejected", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Put("/admin/update").
			Cookie(SessionCookieName, adminToken).
			JSON(`{"id":9999,"email":"ghost@example.com","username":"ghost","is_admin":false}`).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	})

	t.Run("self delete rejected", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Delete("/admin/delete").
			Cookie(SessionCookieName, adminToken).
			JSON(fmt.Sprintf(`{"id":%d}`, admin.ID)).
			Expect(t).
			Status(http.StatusBadRequest).
			Assert(jsonpath.Equal(`$.error`, ErrMsgCannotDeleteSelf)).
			End()

		// the refused delete must not have touched the account
		still, err := env.users.GetUserByID(admin.ID)
		if err != nil || still == nil {
			t.Fatalf("admin account gone after refused self delete: %v, %v", still, err)
		}
	})

	t.Run("delete other user", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Delete("/admin/delete").
			Cookie(SessionCookieName, adminToken).
			JSON(fmt.Sprintf(`{"id":%d}`, alice.ID)).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal(`$.message`, MsgUserDeleted)).
			End()

		gone, err := env.users.GetUserByID(alice.ID)
		if err != nil {
			t.Fatalf("GetUserByID() error = %v", err)
		}
		if gone != nil {
			t.Errorf("user still present after delete: %+v", gone)
		}
	})
}

func TestPasswordResetFlow(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "alice@example.com", "alice", "hunter22")

	apitest.New().
		Handler(env.router).
		Post("/resetPasswordRequest").
		JSON(`{"email":"alice@example.com"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, MsgResetRequest)).
		End()

	// an unknown email gets the exact same answer
	apitest.New().
		Handler(env.router).
		Post("/resetPasswordRequest").
		JSON(`{"email":"nobody@example.com"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, MsgResetRequest)).
		End()

	user, err := env.users.GetUserByEmail("alice@example.com")
	if err != nil || user == nil {
		t.Fatalf("GetUserByEmail() = %v, %v", user, err)
	}

	ciphertext, nonce := env.credentials(t, "new-password")
	apitest.New().
		Handler(env.router).
		Post("/resetPassword").
		JSON(fmt.Sprintf(`{"token":%q,"password":%q,"nonce":%q}`, user.ResetToken, ciphertext, nonce)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, MsgResetDone)).
		End()

	env.login(t, "alice@example.com", "new-password")

	t.Run("token cannot be replayed", func(t *testing.T) {
		ciphertext, nonce := env.credentials(t, "third-password")
		apitest.New().
			Handler(env.router).
			Post("/resetPassword").
			JSON(fmt.Sprintf(`{"token":%q,"password":%q,"nonce":%q}`, user.ResetToken, ciphertext, nonce)).
			Expect(t).
			Status(http.StatusBadRequest).
			Assert(jsonpath.Equal(`$.error`, "invalid or expired reset token")).
			End()
	})
}

func TestNotFoundFallback(t *testing.T) {
	env := newAPIEnv(t)

	apitest.New().
		Handler(env.router).
		Get("/no/such/route").
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal(`$.error`, ErrMsgNotFound)).
		End()
}

func TestRateLimit(t *testing.T) {
	env := newAPIEnv(t)

	// rebuild the route table with a tight limiter
	m := NewMiddleware(env.auth, security.NewRateLimiter(2, time.Minute))
	router := http.NewServeMux()
	router.HandleFunc("POST /getNonce", m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusOK, "ok")
	}))

	for i := 0; i < 2; i++ {
		apitest.New().
			Handler(router).
			Post("/getNonce").
			Expect(t).
			Status(http.StatusOK).
			End()
	}

	apitest.New().
		Handler(router).
		Post("/getNonce").
		Expect(t).
		Status(http.StatusTooManyRequests).
		Assert(jsonpath.Equal(`$.error`, ErrMsgTooManyRequests)).
		End()
}
