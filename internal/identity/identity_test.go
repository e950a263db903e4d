package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/xelth-com/geoattend/internal/models"
	"github.com/xelth-com/geoattend/internal/store"
)

func TestRegisterAndSignIn(t *testing.T) {
	users := store.NewMemoryUsers()
	svc := NewService(users, "test-secret")
	ctx := context.Background()

	session, err := svc.Register(ctx, " Ann Tan ", "Ann@Example.com", "secret123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if session.User.Role != models.RoleWorker || session.User.Name != "Ann Tan" || session.User.Email != "ann@example.com" {
		t.Errorf("Unexpected user %+v", session.User)
	}
	if session.User.Password == "secret123" {
		t.Error("Password stored in plaintext")
	}

	if _, err := svc.Register(ctx, "Ann", "ann@example.com", "secret123"); !errors.Is(err, ErrEmailInUse) {
		t.Errorf("Expected ErrEmailInUse, got %v", err)
	}

	signedIn, err := svc.SignIn(ctx, "ann@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if signedIn.User.LastLogin == nil {
		t.Error("LastLogin not stamped")
	}
	if n := len(users.LogIns()); n != 1 {
		t.Errorf("Expected one log-in entry, got %d", n)
	}

	user, err := svc.Authenticate(ctx, signedIn.AccessToken)
	if err != nil || user.ID != session.User.ID {
		t.Fatalf("Authenticate failed: %v", err)
	}
}

func TestSignInErrors(t *testing.T) {
	svc := NewService(store.NewMemoryUsers(), "test-secret")
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Bob", "bob@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	cases := []struct {
		email, password string
		want            error
		message         string
	}{
		{"bob@example.com", "wrong", ErrInvalidCredentials, "Incorrect email or password."},
		{"nobody@example.com", "secret123", ErrInvalidCredentials, "Incorrect email or password."},
		{"not-an-email", "secret123", ErrInvalidEmail, "Invalid email address."},
	}
	for _, c := range cases {
		_, err := svc.SignIn(ctx, c.email, c.password)
		if !errors.Is(err, c.want) {
			t.Errorf("SignIn(%s): expected %v, got %v", c.email, c.want, err)
		}
		if got := Message(err); got != c.message {
			t.Errorf("SignIn(%s): expected message %q, got %q", c.email, c.message, got)
		}
	}

	if _, err := svc.Register(ctx, "Cat", "cat@example.com", "123"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}
}

func TestAuthenticateSeesRoleChanges(t *testing.T) {
	users := store.NewMemoryUsers()
	svc := NewService(users, "test-secret")
	ctx := context.Background()

	session, _ := svc.Register(ctx, "Dan", "dan@example.com", "secret123")
	if err := users.UpdateRole(ctx, session.User.ID, models.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	user, err := svc.Authenticate(ctx, session.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("Expected admin, got %s", user.Role)
	}

	if _, err := svc.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for empty token, got %v", err)
	}
	if _, err := NewService(users, "other-secret").Authenticate(ctx, session.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for foreign token, got %v", err)
	}
}
