package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ndewijer/cryptofolio/internal/apperrors"
	"github.com/ndewijer/cryptofolio/internal/model"
	"github.com/ndewijer/cryptofolio/internal/service"
	"github.com/ndewijer/cryptofolio/internal/testutil"
)

// TestAuthService_SignUp tests account registration.
//
// WHY: Emails identify accounts case-insensitively, and a duplicate must be
// reported as such so the form can show a precise message.
func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a new user", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)

		// Execute
		user, err := svc.SignUp(ctx, "  Alice@Example.com ", "s3cret!")

		// Assert
		if err != nil {
			t.Fatalf("SignUp() returned unexpected error: %v", err)
		}
		if user.ID == "" {
			t.Error("Expected user ID to be assigned")
		}
		if user.Email != "alice@example.com" {
			t.Errorf("Expected normalized email, got %q", user.Email)
		}
		if user.PasswordHash == "" || user.PasswordHash == "s3cret!" {
			t.Error("Expected password to be hashed")
		}
		testutil.AssertRowCount(t, db, "users", 1)
	})

	t.Run("rejects a taken email regardless of case", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)
		testutil.NewUser().WithEmail("bob@example.com").Build(t, db)

		// Execute
		_, err := svc.SignUp(ctx, "BOB@example.com", "whatever")

		// Assert
		if !errors.Is(err, apperrors.ErrEmailTaken) {
			t.Errorf("Expected ErrEmailTaken, got %v", err)
		}
		testutil.AssertRowCount(t, db, "users", 1)
	})
}

func TestAuthService_SignInWithPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a session and returns a token", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)
		user := testutil.NewUser().WithEmail("carol@example.com").WithPassword("pw123456").Build(t, db)

		// Execute
		tok, err := svc.SignInWithPassword(ctx, "Carol@example.com", "pw123456")

		// Assert
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}
		if tok.Token == "" {
			t.Fatal("Expected a token")
		}
		if tok.UserID != user.ID || tok.Email != user.Email {
			t.Errorf("Token for wrong user: %+v", tok)
		}
		if !tok.ExpiresAt.After(time.Now()) {
			t.Errorf("Expected expiry in the future, got %s", tok.ExpiresAt)
		}
		testutil.AssertRowCount(t, db, "session", 1)

		session, err := svc.CurrentSession(ctx, tok.Token)
		if err != nil {
			t.Fatalf("CurrentSession() returned unexpected error: %v", err)
		}
		if session.UserID != user.ID {
			t.Errorf("Expected session of %s, got %s", user.ID, session.UserID)
		}
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)
		testutil.NewUser().WithEmail("dave@example.com").WithPassword("right-one").Build(t, db)

		// Execute
		_, errWrong := svc.SignInWithPassword(ctx, "dave@example.com", "wrong-one")
		_, errUnknown := svc.SignInWithPassword(ctx, "nobody@example.com", "right-one")

		// Assert
		if !errors.Is(errWrong, apperrors.ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials for wrong password, got %v", errWrong)
		}
		if !errors.Is(errUnknown, apperrors.ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", errUnknown)
		}
		testutil.AssertRowCount(t, db, "session", 0)
	})
}

func TestAuthService_CurrentSession(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a malformed token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)

		_, err := svc.CurrentSession(ctx, "not-a-token")
		if !errors.Is(err, apperrors.ErrSessionExpired) {
			t.Errorf("Expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects a token signed by another key", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		issuer := testutil.NewTestAuthService(t, db)
		verifier := testutil.NewTestAuthService(t, db)
		testutil.NewUser().WithEmail("erin@example.com").Build(t, db)

		tok, err := issuer.SignInWithPassword(ctx, "erin@example.com", testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}

		if _, err := verifier.CurrentSession(ctx, tok.Token); !errors.Is(err, apperrors.ErrSessionExpired) {
			t.Errorf("Expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects an expired session", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthServiceWithTTL(t, db, time.Second)
		testutil.NewUser().WithEmail("frank@example.com").Build(t, db)

		tok, err := svc.SignInWithPassword(ctx, "frank@example.com", testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}

		time.Sleep(2100 * time.Millisecond)

		if _, err := svc.CurrentSession(ctx, tok.Token); !errors.Is(err, apperrors.ErrSessionExpired) {
			t.Errorf("Expected ErrSessionExpired, got %v", err)
		}
	})
}

// TestAuthService_SessionEvents tests the session change notifications.
//
// WHY: Portfolio caches and drafts are torn down from these events, so a
// sign-out must be published once the user has no session left, and
// subscribers must run in the order they subscribed.
func TestAuthService_SessionEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("sign in and sign out are published in order", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)
		user := testutil.NewUser().WithEmail("gina@example.com").Build(t, db)

		var order []string
		var events []model.SessionEvent
		svc.OnSessionChange(func(ev model.SessionEvent) {
			order = append(order, "first")
			events = append(events, ev)
		})
		svc.OnSessionChange(func(model.SessionEvent) {
			order = append(order, "second")
		})

		// Execute
		tok, err := svc.SignInWithPassword(ctx, "gina@example.com", testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}
		if err := svc.SignOut(ctx, tok.Token); err != nil {
			t.Fatalf("SignOut() returned unexpected error: %v", err)
		}

		// Assert
		if strings.Join(order, ",") != "first,second,first,second" {
			t.Errorf("Unexpected delivery order: %v", order)
		}
		if len(events) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(events))
		}
		if events[0].Session == nil || events[0].UserID != user.ID {
			t.Errorf("Expected sign-in event with session, got %+v", events[0])
		}
		if events[1].Session != nil || events[1].UserID != user.ID {
			t.Errorf("Expected sign-out event without session, got %+v", events[1])
		}
		testutil.AssertRowCount(t, db, "session", 0)

		if _, err := svc.CurrentSession(ctx, tok.Token); !errors.Is(err, apperrors.ErrSessionExpired) {
			t.Errorf("Expected revoked token to be rejected, got %v", err)
		}
	})

	t.Run("signing out one of two sessions publishes nothing", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)
		testutil.NewUser().WithEmail("hank@example.com").Build(t, db)

		tok1, err := svc.SignInWithPassword(ctx, "hank@example.com", testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}
		tok2, err := svc.SignInWithPassword(ctx, "hank@example.com", testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}

		var signedOut int
		svc.OnSessionChange(func(ev model.SessionEvent) {
			if ev.Session == nil {
				signedOut++
			}
		})

		// Execute and Assert
		if err := svc.SignOut(ctx, tok1.Token); err != nil {
			t.Fatalf("SignOut() returned unexpected error: %v", err)
		}
		if signedOut != 0 {
			t.Errorf("Expected no sign-out event while a session remains, got %d", signedOut)
		}

		if err := svc.SignOut(ctx, tok2.Token); err != nil {
			t.Fatalf("SignOut() returned unexpected error: %v", err)
		}
		if signedOut != 1 {
			t.Errorf("Expected 1 sign-out event, got %d", signedOut)
		}
	})

	t.Run("signing out the only live session publishes despite an expired one", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)
		user := testutil.NewUser().WithEmail("jack@example.com").Build(t, db)

		stale, err := svc.SignInWithPassword(ctx, "jack@example.com", testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}
		live, err := svc.SignInWithPassword(ctx, "jack@example.com", testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}
		staleSession, err := svc.CurrentSession(ctx, stale.Token)
		if err != nil {
			t.Fatalf("CurrentSession() returned unexpected error: %v", err)
		}
		testutil.ExpireSession(t, db, staleSession.ID)

		var events []model.SessionEvent
		svc.OnSessionChange(func(ev model.SessionEvent) {
			events = append(events, ev)
		})

		// Execute
		if err := svc.SignOut(ctx, live.Token); err != nil {
			t.Fatalf("SignOut() returned unexpected error: %v", err)
		}

		// Assert
		if len(events) != 1 || events[0].Session != nil || events[0].UserID != user.ID {
			t.Errorf("Expected one sign-out event for %s, got %+v", user.ID, events)
		}
	})

	t.Run("an expired session found on lookup is removed and published", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)
		user := testutil.NewUser().WithEmail("kate@example.com").Build(t, db)

		tok, err := svc.SignInWithPassword(ctx, "kate@example.com", testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}
		session, err := svc.CurrentSession(ctx, tok.Token)
		if err != nil {
			t.Fatalf("CurrentSession() returned unexpected error: %v", err)
		}
		testutil.ExpireSession(t, db, session.ID)

		var events []model.SessionEvent
		svc.OnSessionChange(func(ev model.SessionEvent) {
			events = append(events, ev)
		})

		// Execute
		_, err = svc.CurrentSession(ctx, tok.Token)

		// Assert
		if !errors.Is(err, apperrors.ErrSessionExpired) {
			t.Errorf("Expected ErrSessionExpired, got %v", err)
		}
		if len(events) != 1 || events[0].Session != nil || events[0].UserID != user.ID {
			t.Errorf("Expected one sign-out event for %s, got %+v", user.ID, events)
		}
		testutil.AssertRowCount(t, db, "session", 0)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db)
		testutil.NewUser().WithEmail("ivy@example.com").Build(t, db)

		calls := 0
		unsubscribe := svc.OnSessionChange(func(model.SessionEvent) { calls++ })
		unsubscribe()

		if _, err := svc.SignInWithPassword(ctx, "ivy@example.com", testutil.DefaultPassword); err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}
		if calls != 0 {
			t.Errorf("Expected no calls after unsubscribe, got %d", calls)
		}
	})
}

// TestAuthService_PurgeExpiredSessions tests the expired-session sweep.
//
// WHY: A session that simply times out is never signed out, so the sweep is
// what tells subscribers the user has no session left.
func TestAuthService_PurgeExpiredSessions(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	// signIn opens a session for a fresh user and returns its stored ID.
	signIn := func(t *testing.T, svc *service.AuthService, user model.User) string {
		t.Helper()
		tok, err := svc.SignInWithPassword(ctx, user.Email, testutil.DefaultPassword)
		if err != nil {
			t.Fatalf("SignInWithPassword() returned unexpected error: %v", err)
		}
		session, err := svc.CurrentSession(ctx, tok.Token)
		if err != nil {
			t.Fatalf("CurrentSession() returned unexpected error: %v", err)
		}
		return session.ID
	}

	t.Run("publishes only for users left without a live session", func(t *testing.T) {
		// Setup
		testutil.CleanDatabase(t, db)
		svc := testutil.NewTestAuthService(t, db)
		alice := testutil.CreateUser(t, db)
		bob := testutil.CreateUser(t, db)

		testutil.ExpireSession(t, db, signIn(t, svc, alice))
		signIn(t, svc, alice)
		testutil.ExpireSession(t, db, signIn(t, svc, bob))

		var signedOut []string
		svc.OnSessionChange(func(ev model.SessionEvent) {
			if ev.Session == nil {
				signedOut = append(signedOut, ev.UserID)
			}
		})

		// Execute
		if err := svc.PurgeExpiredSessions(ctx); err != nil {
			t.Fatalf("PurgeExpiredSessions() returned unexpected error: %v", err)
		}

		// Assert
		if len(signedOut) != 1 || signedOut[0] != bob.ID {
			t.Errorf("Expected a sign-out event for bob only, got %v", signedOut)
		}
		testutil.AssertRowCount(t, db, "session", 1)
	})

	t.Run("sweeper purges on its schedule", func(t *testing.T) {
		// Setup
		testutil.CleanDatabase(t, db)
		svc := testutil.NewTestAuthService(t, db)
		user := testutil.CreateUser(t, db)
		testutil.ExpireSession(t, db, signIn(t, svc, user))

		done := make(chan string, 1)
		svc.OnSessionChange(func(ev model.SessionEvent) {
			if ev.Session == nil {
				done <- ev.UserID
			}
		})

		// Execute
		if err := svc.StartSweeper(ctx, "@every 1s"); err != nil {
			t.Fatalf("StartSweeper() returned unexpected error: %v", err)
		}
		defer svc.Stop()

		// Assert
		select {
		case userID := <-done:
			if userID != user.ID {
				t.Errorf("Expected sign-out of %s, got %s", user.ID, userID)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Sweeper did not purge the expired session")
		}
	})

	t.Run("rejects an invalid schedule", func(t *testing.T) {
		svc := testutil.NewTestAuthService(t, db)
		if err := svc.StartSweeper(ctx, "every now and then"); err == nil {
			t.Error("Expected an error for an invalid schedule")
		}
	})
}

func TestLoadSessionKey(t *testing.T) {
	t.Run("generates a key when empty", func(t *testing.T) {
		key, generated, err := service.LoadSessionKey("")
		if err != nil {
			t.Fatalf("LoadSessionKey() returned unexpected error: %v", err)
		}
		if !generated || key == nil {
			t.Error("Expected a generated key")
		}
	})

	t.Run("decodes a configured key", func(t *testing.T) {
		key, _, err := service.LoadSessionKey("")
		if err != nil {
			t.Fatalf("LoadSessionKey() returned unexpected error: %v", err)
		}

		decoded, generated, err := service.LoadSessionKey(key.Encode())
		if err != nil {
			t.Fatalf("LoadSessionKey() returned unexpected error: %v", err)
		}
		if generated || *decoded != *key {
			t.Error("Expected the configured key back")
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if _, _, err := service.LoadSessionKey("not base64!"); err == nil {
			t.Error("Expected error, got nil")
		}
	})
}
