package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/breathemate/breathemate/internal/storage"
)

var (
	// ErrInvalidCredentials is returned when the email/password pair does
	// not match the configured demo account.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidSession is returned when a token is unknown or expired.
	ErrInvalidSession = errors.New("invalid or expired session")
)

// SessionStore is the subset of storage used for session management.
type SessionStore interface {
	CreateSession(sess storage.Session) error
	GetSession(token string) (storage.Session, error)
	DeleteSession(token string) error
	DeleteExpiredSessions(now time.Time) (int, error)
}

// Authenticator validates the demo account credentials and manages
// session tokens.
type Authenticator struct {
	store    SessionStore
	email    string
	password string
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthenticator(store SessionStore, email, password string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}
	return &Authenticator{
		store:    store,
		email:    email,
		password: password,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login checks the credentials and, on success, issues a new session token.
func (a *Authenticator) Login(email, password string) (storage.Session, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !emailOK || !passOK {
		return storage.Session{}, ErrInvalidCredentials
	}

	now := a.now().UTC()
	sess := storage.Session{
		Token:     uuid.New().String(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}
	if err := a.store.CreateSession(sess); err != nil {
		return storage.Session{}, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// Verify resolves a token to its session. Expired sessions are removed
// and reported as invalid.
func (a *Authenticator) Verify(token string) (storage.Session, error) {
	if token == "" {
		return storage.Session{}, ErrInvalidSession
	}
	sess, err := a.store.GetSession(token)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, ErrInvalidSession
	}
	if err != nil {
		return storage.Session{}, fmt.Errorf("loading session: %w", err)
	}
	if !sess.ExpiresAt.After(a.now().UTC()) {
		// Lazy cleanup; a failed delete doesn't change the verdict.
		_ = a.store.DeleteSession(token)
		return storage.Session{}, ErrInvalidSession
	}
	return sess, nil
}

// Logout invalidates a session token.
func (a *Authenticator) Logout(token string) error {
	err := a.store.DeleteSession(token)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidSession
	}
	return err
}

// Sweep removes all expired sessions and returns how many were dropped.
func (a *Authenticator) Sweep() (int, error) {
	return a.store.DeleteExpiredSessions(a.now().UTC())
}
