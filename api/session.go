package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/subsense/subsense/common/settings"
	"github.com/subsense/subsense/events"
)

// SessionChange is emitted whenever the session identity or login state
// changes, so views can react without polling the store.
type SessionChange struct {
	LoggedIn bool
	Email    string
}

// SessionStore owns the current identity and bearer token. It is the single
// source of truth for "is the user logged in": a non-empty token means logged
// in, and no other component caches that fact. The token is persisted so the
// session survives restarts and the redirect boundary of the linking flow.
//
// Invariant: identity is non-nil only while token is non-empty. The converse
// does not hold during the window between token hydration being attempted and
// resolving.
type SessionStore struct {
	mu       sync.Mutex
	store    *settings.Store
	auth     AuthClient
	identity *Identity
	token    string
}

func newSessionStore(store *settings.Store) *SessionStore {
	return &SessionStore{store: store}
}

// Init loads a previously persisted token and attempts to hydrate the
// identity for it. A missing token is not an error; a token whose expiry
// claim has already passed is purged without a network call. When hydration fails
// because the backend no longer accepts the token, the stale token is purged
// and the user is effectively logged out; transport failures keep the token
// so a later retry can still succeed.
func (s *SessionStore) Init(ctx context.Context) error {
	s.mu.Lock()
	token := s.store.GetString(settings.TokenKey)
	if token == "" {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// an obviously expired token does not warrant a round trip
	if tokenExpired(token) {
		slog.Warn("persisted token expired, logging out")
		if lerr := s.Logout(); lerr != nil {
			return lerr
		}
		return &AuthError{Err: errTokenExpired}
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	identity, err := s.auth.Me(ctx)
	if err != nil {
		if isTokenRejected(err) {
			slog.Warn("persisted token rejected, logging out", "error", err)
			if lerr := s.Logout(); lerr != nil {
				return lerr
			}
			return &AuthError{Err: err}
		}
		slog.Warn("identity hydration failed, keeping token", "error", err)
		return &AuthError{Err: err}
	}
	s.setIdentity(identity)
	return nil
}

// Login persists the given token and hydrates the identity for it. On
// hydration failure an AuthError is returned; the token write is rolled back
// only when the backend rejected the token outright, mirroring Init.
func (s *SessionStore) Login(ctx context.Context, token string) error {
	if err := s.store.Set(settings.TokenKey, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	identity, err := s.auth.Me(ctx)
	if err != nil {
		if isTokenRejected(err) {
			if lerr := s.Logout(); lerr != nil {
				return lerr
			}
		}
		return &AuthError{Err: err}
	}
	if claims, cerr := decodeToken(token); cerr == nil && claims.Email != "" {
		if serr := s.store.Set(settings.EmailKey, claims.Email); serr != nil {
			slog.Warn("failed to persist email", "error", serr)
		}
	}
	s.setIdentity(identity)
	return nil
}

// Logout clears the token and identity and removes the persisted token. It
// makes no network call.
func (s *SessionStore) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.identity = nil
	s.mu.Unlock()
	if err := s.store.Delete(settings.TokenKey); err != nil {
		return err
	}
	events.Emit(SessionChange{LoggedIn: false})
	return nil
}

// ReplaceIdentity overwrites the identity without touching the token. Used
// when the identity is refreshed independently of a fresh login.
func (s *SessionStore) ReplaceIdentity(identity *Identity) {
	s.setIdentity(identity)
}

func (s *SessionStore) setIdentity(identity *Identity) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	change := SessionChange{LoggedIn: true}
	if identity != nil {
		change.Email = identity.Email
	}
	events.Emit(change)
}

// Token returns the current bearer token, or "" when logged out.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Identity returns the current identity, or nil when not hydrated.
func (s *SessionStore) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *SessionStore) LoggedIn() bool {
	return s.Token() != ""
}

// isTokenRejected reports whether err means the backend refused the bearer
// token itself, as opposed to a transient failure.
func isTokenRejected(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	return reqErr.Status == http.StatusUnauthorized || reqErr.Status == http.StatusForbidden
}
