package repository

import (
	"path/filepath"
	"testing"
	"time"

	"tenxdev/internal/database"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestUserRepository(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	user, err := repo.CreateUser("alice@example.com", "alice", "hash1", false)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("CreateUser() returned zero ID")
	}

	t.Run("duplicate email rejected", func(t *testing.T) {
		if _, err := repo.CreateUser("alice@example.com", "alice2", "hash2", false); err == nil {
			t.Error("CreateUser() allowed a duplicate email")
		}
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := repo.GetUserByEmail("alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail() error = %v", err)
		}
		if got == nil || got.ID != user.ID || got.Username != "alice" {
			t.Errorf("GetUserByEmail() = %+v, want user %d", got, user.ID)
		}
	})

	t.Run("get missing user returns nil", func(t *testing.T) {
		got, err := repo.GetUserByEmail("nobody@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetUserByEmail() = %+v, want nil", got)
		}
	})

	t.Run("update user", func(t *testing.T) {
		if err := repo.UpdateUser(user.ID, "alice@example.org", "alice2", true); err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}
		got, err := repo.GetUserByID(user.ID)
		if err != nil {
			t.Fatalf("GetUserByID() error = %v", err)
		}
		if got.Email != "alice@example.org" || got.Username != "alice2" || !got.IsAdmin {
			t.Errorf("GetUserByID() after update = %+v", got)
		}
	})

	t.Run("reset token lifecycle", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour).Unix()
		if err := repo.SetResetToken(user.ID, "tok-123", expiry); err != nil {
			t.Fatalf("SetResetToken() error = %v", err)
		}

		got, err := repo.GetUserByResetToken("tok-123")
		if err != nil {
			t.Fatalf("GetUserByResetToken() error = %v", err)
		}
		if got == nil || got.ID != user.ID {
			t.Fatalf("GetUserByResetToken() = %+v, want user %d", got, user.ID)
		}
		if got.ResetTokenExpiry != expiry {
			t.Errorf("ResetTokenExpiry = %d, want %d", got.ResetTokenExpiry, expiry)
		}

		if err := repo.ResetPassword(user.ID, "hash2"); err != nil {
			t.Fatalf("ResetPassword() error = %v", err)
		}

		// the same update that writes the hash must clear the token
		got, err = repo.GetUserByResetToken("tok-123")
		if err != nil {
			t.Fatalf("GetUserByResetToken() error = %v", err)
		}
		if got != nil {
			t.Errorf("reset token still resolves after ResetPassword: %+v", got)
		}

		byID, err := repo.GetUserByID(user.ID)
		if err != nil {
			t.Fatalf("GetUserByID() error = %v", err)
		}
		if byID.PasswordHash != "hash2" {
			t.Errorf("PasswordHash = %q, want %q", byID.PasswordHash, "hash2")
		}
	})

	t.Run("delete user removes dependents", func(t *testing.T) {
		sessions := NewSessionRepository(db)
		requests := NewRequestRepository(db)

		if _, err := sessions.CreateSession(user.ID, "sess-token", time.Now().Add(time.Hour).Unix()); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
		if _, err := requests.CreateRequest(user.ID, "prompt", "response"); err != nil {
			t.Fatalf("CreateRequest() error = %v", err)
		}

		if err := repo.DeleteUser(user.ID); err != nil {
			t.Fatalf("DeleteUser() error = %v", err)
		}

		got, err := repo.GetUserByID(user.ID)
		if err != nil {
			t.Fatalf("GetUserByID() error = %v", err)
		}
		if got != nil {
			t.Errorf("user still present after delete: %+v", got)
		}

		sess, err := sessions.GetSessionByToken("sess-token")
		if err != nil {
			t.Fatalf("GetSessionByToken() error = %v", err)
		}
		if sess != nil {
			t.Errorf("session survived user delete: %+v", sess)
		}

		count, err := requests.CountByUser(user.ID)
		if err != nil {
			t.Fatalf("CountByUser() error = %v", err)
		}
		if count != 0 {
			t.Errorf("request count after delete = %d, want 0", count)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	repo := NewSessionRepository(db)

	user, err := users.CreateUser("bob@example.com", "bob", "hash", false)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	expires := time.Now().Add(time.Hour).Unix()
	session, err := repo.CreateSession(user.ID, "token-1", expires)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	t.Run("get by token", func(t *testing.T) {
		got, err := repo.GetSessionByToken("token-1")
		if err != nil {
			t.Fatalf("GetSessionByToken() error = %v", err)
		}
		if got == nil || got.ID != session.ID || got.UserID != user.ID || got.ExpiresAt != expires {
			t.Errorf("GetSessionByToken() = %+v", got)
		}
	})

	t.Run("missing token returns nil", func(t *testing.T) {
		got, err := repo.GetSessionByToken("no-such-token")
		if err != nil {
			t.Fatalf("GetSessionByToken() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetSessionByToken() = %+v, want nil", got)
		}
	})

	t.Run("delete user sessions", func(t *testing.T) {
		if _, err := repo.CreateSession(user.ID, "token-2", expires); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
		if err := repo.DeleteUserSessions(user.ID); err != nil {
			t.Fatalf("DeleteUserSessions() error = %v", err)
		}
		for _, token := range []string{"token-1", "token-2"} {
			got, err := repo.GetSessionByToken(token)
			if err != nil {
				t.Fatalf("GetSessionByToken(%q) error = %v", token, err)
			}
			if got != nil {
				t.Errorf("session %q survived DeleteUserSessions", token)
			}
		}
	})

	t.Run("delete expired sessions", func(t *testing.T) {
		if _, err := repo.CreateSession(user.ID, "stale", time.Now().Add(-time.Minute).Unix()); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
		if _, err := repo.CreateSession(user.ID, "fresh", time.Now().Add(time.Hour).Unix()); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}

		if err := repo.DeleteExpiredSessions(); err != nil {
			t.Fatalf("DeleteExpiredSessions() error = %v", err)
		}

		stale, _ := repo.GetSessionByToken("stale")
		if stale != nil {
			t.Error("expired session survived sweep")
		}
		fresh, _ := repo.GetSessionByToken("fresh")
		if fresh == nil {
			t.Error("live session was swept")
		}
	})
}

func TestNonceRepository(t *testing.T) {
	db := testDB(t)
	repo := NewNonceRepository(db)

	expires := time.Now().Add(5 * time.Minute).Unix()
	nonce, err := repo.CreateNonce("abc123", expires)
	if err != nil {
		t.Fatalf("CreateNonce() error = %v", err)
	}

	got, err := repo.GetNonce("abc123")
	if err != nil {
		t.Fatalf("GetNonce() error = %v", err)
	}
	if got == nil || got.ID != nonce.ID || got.ExpiresAt != expires {
		t.Errorf("GetNonce() = %+v", got)
	}

	t.Run("duplicate value rejected", func(t *testing.T) {
		if _, err := repo.CreateNonce("abc123", expires); err == nil {
			t.Error("CreateNonce() allowed a duplicate value")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.DeleteNonce("abc123"); err != nil {
			t.Fatalf("DeleteNonce() error = %v", err)
		}
		got, err := repo.GetNonce("abc123")
		if err != nil {
			t.Fatalf("GetNonce() error = %v", err)
		}
		if got != nil {
			t.Errorf("nonce still present after delete: %+v", got)
		}

		// deleting again is a no-op, not an error
		if err := repo.DeleteNonce("abc123"); err != nil {
			t.Errorf("DeleteNonce() on absent value error = %v", err)
		}
	})

	t.Run("sweep expired", func(t *testing.T) {
		if _, err := repo.CreateNonce("old", time.Now().Add(-time.Minute).Unix()); err != nil {
			t.Fatalf("CreateNonce() error = %v", err)
		}
		if _, err := repo.CreateNonce("new", time.Now().Add(time.Minute).Unix()); err != nil {
			t.Fatalf("CreateNonce() error = %v", err)
		}

		if err := repo.DeleteExpiredNonces(); err != nil {
			t.Fatalf("DeleteExpiredNonces() error = %v", err)
		}

		old, _ := repo.GetNonce("old")
		if old != nil {
			t.Error("expired nonce survived sweep")
		}
		fresh, _ := repo.GetNonce("new")
		if fresh == nil {
			t.Error("live nonce was swept")
		}
	})
}

func TestRequestRepository(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	repo := NewRequestRepository(db)

	alice, err := users.CreateUser("alice@example.com", "alice", "hash", false)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	bob, err := users.CreateUser("bob@example.com", "bob", "hash", true)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := repo.CreateRequest(alice.ID, "prompt", "response"); err != nil {
			t.Fatalf("CreateRequest() error = %v", err)
		}
	}

	t.Run("count by user", func(t *testing.T) {
		count, err := repo.CountByUser(alice.ID)
		if err != nil {
			t.Fatalf("CountByUser() error = %v", err)
		}
		if count != 3 {
			t.Errorf("CountByUser(alice) = %d, want 3", count)
		}

		count, err = repo.CountByUser(bob.ID)
		if err != nil {
			t.Fatalf("CountByUser() error = %v", err)
		}
		if count != 0 {
			t.Errorf("CountByUser(bob) = %d, want 0", count)
		}
	})

	t.Run("get all requests", func(t *testing.T) {
		all, err := repo.GetAllRequests()
		if err != nil {
			t.Fatalf("GetAllRequests() error = %v", err)
		}
		if len(all) != 3 {
			t.Errorf("GetAllRequests() returned %d rows, want 3", len(all))
		}
	})

	t.Run("user reports include users with no requests", func(t *testing.T) {
		reports, err := repo.GetUserReports()
		if err != nil {
			t.Fatalf("GetUserReports() error = %v", err)
		}
		if len(reports) != 2 {
			t.Fatalf("GetUserReports() returned %d rows, want 2", len(reports))
		}

		byID := map[int64]int64{}
		for _, rep := range reports {
			byID[rep.ID] = rep.RequestCount
		}
		if byID[alice.ID] != 3 {
			t.Errorf("alice request count = %d, want 3", byID[alice.ID])
		}
		if byID[bob.ID] != 0 {
			t.Errorf("bob request count = %d, want 0", byID[bob.ID])
		}
	})
}
