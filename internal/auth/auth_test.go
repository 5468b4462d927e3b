package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/breathemate/breathemate/internal/storage"
)

func newTestAuth(t *testing.T) (*Authenticator, *storage.Store) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewAuthenticator(s, "demo@breathemate.com", "demo1234", time.Hour), s
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	a, _ := newTestAuth(t)

	sess, err := a.Login("demo@breathemate.com", "demo1234")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("empty session token")
	}

	got, err := a.Verify(sess.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Email != "demo@breathemate.com" {
		t.Errorf("session email = %q", got.Email)
	}
}

func TestLogin_RejectsWrongCredentials(t *testing.T) {
	a, _ := newTestAuth(t)

	cases := []struct{ email, password string }{
		{"demo@breathemate.com", "wrong"},
		{"someone@else.com", "demo1234"},
		{"", ""},
	}
	for _, tc := range cases {
		if _, err := a.Login(tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) = %v, want ErrInvalidCredentials", tc.email, tc.password, err)
		}
	}
}

func TestVerify_UnknownToken(t *testing.T) {
	a, _ := newTestAuth(t)

	if _, err := a.Verify("no-such-token"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify = %v, want ErrInvalidSession", err)
	}
	if _, err := a.Verify(""); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify empty = %v, want ErrInvalidSession", err)
	}
}

func TestVerify_ExpiredSessionIsRemoved(t *testing.T) {
	a, store := newTestAuth(t)

	sess, err := a.Login("demo@breathemate.com", "demo1234")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Jump past the TTL.
	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := a.Verify(sess.Token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Verify expired = %v, want ErrInvalidSession", err)
	}
	if _, err := store.GetSession(sess.Token); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expired session not cleaned up: %v", err)
	}
}

func TestLogout(t *testing.T) {
	a, _ := newTestAuth(t)

	sess, err := a.Login("demo@breathemate.com", "demo1234")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := a.Logout(sess.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := a.Verify(sess.Token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify after logout = %v, want ErrInvalidSession", err)
	}
	if err := a.Logout(sess.Token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("second Logout = %v, want ErrInvalidSession", err)
	}
}

func TestSweep(t *testing.T) {
	a, _ := newTestAuth(t)

	past := time.Now().Add(-time.Minute)
	a.now = func() time.Time { return past.Add(-time.Hour) }
	if _, err := a.Login("demo@breathemate.com", "demo1234"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	a.now = time.Now
	// The earlier session had a 1h TTL starting over an hour ago.
	n, err := a.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep removed %d sessions, want 1", n)
	}
}
