package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subsense/subsense/common/settings"
	"github.com/subsense/subsense/events"
)

type mockAuthClient struct {
	meFunc  func(ctx context.Context) (*Identity, error)
	meCalls int
}

func (m *mockAuthClient) Login(ctx context.Context, email, password string) (string, error) {
	return "", nil
}

func (m *mockAuthClient) SignUp(ctx context.Context, name, email, password string) (string, error) {
	return "", nil
}

func (m *mockAuthClient) Me(ctx context.Context) (*Identity, error) {
	m.meCalls++
	if m.meFunc != nil {
		return m.meFunc(ctx)
	}
	return &Identity{ID: 1, Name: "Jane", Email: "jane@example.com"}, nil
}

func (m *mockAuthClient) ValidateEmail(ctx context.Context, email string) error { return nil }

func (m *mockAuthClient) ResetPassword(ctx context.Context, email, newPassword string) error {
	return nil
}

func newTestSession(t *testing.T, auth AuthClient) (*SessionStore, *settings.Store) {
	t.Helper()
	store, err := settings.New(t.TempDir())
	require.NoError(t, err)
	s := newSessionStore(store)
	s.auth = auth
	return s, store
}

func TestSessionLogin(t *testing.T) {
	mock := &mockAuthClient{}
	s, store := newTestSession(t, mock)

	token := makeToken(t, "jane@example.com")
	require.NoError(t, s.Login(context.Background(), token))

	assert.Equal(t, token, s.Token())
	assert.True(t, s.LoggedIn())
	require.NotNil(t, s.Identity())
	assert.Equal(t, "Jane", s.Identity().Name)
	assert.Equal(t, token, store.GetString(settings.TokenKey))
	assert.Equal(t, "jane@example.com", store.GetString(settings.EmailKey))
}

func TestSessionLoginTokenRejected(t *testing.T) {
	mock := &mockAuthClient{
		meFunc: func(ctx context.Context) (*Identity, error) {
			return nil, &RequestError{Status: http.StatusUnauthorized, Detail: "bad token"}
		},
	}
	s, store := newTestSession(t, mock)

	err := s.Login(context.Background(), "rejected-token")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)

	// the rejected token must not survive anywhere
	assert.Empty(t, s.Token())
	assert.False(t, s.LoggedIn())
	assert.Nil(t, s.Identity())
	assert.False(t, store.Has(settings.TokenKey))
}

func TestSessionLoginTransientFailure(t *testing.T) {
	mock := &mockAuthClient{
		meFunc: func(ctx context.Context) (*Identity, error) {
			return nil, &NetworkError{Err: context.DeadlineExceeded}
		},
	}
	s, store := newTestSession(t, mock)

	err := s.Login(context.Background(), "tok123")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)

	// token survives so a later retry can hydrate
	assert.Equal(t, "tok123", s.Token())
	assert.True(t, s.LoggedIn())
	assert.Nil(t, s.Identity())
	assert.Equal(t, "tok123", store.GetString(settings.TokenKey))
}

func TestSessionInit(t *testing.T) {
	t.Run("no persisted token", func(t *testing.T) {
		mock := &mockAuthClient{}
		s, _ := newTestSession(t, mock)

		require.NoError(t, s.Init(context.Background()))
		assert.False(t, s.LoggedIn())
		assert.Zero(t, mock.meCalls, "no hydration without a token")
	})

	t.Run("persisted token hydrates identity", func(t *testing.T) {
		mock := &mockAuthClient{}
		s, store := newTestSession(t, mock)
		require.NoError(t, store.Set(settings.TokenKey, "tok123"))

		require.NoError(t, s.Init(context.Background()))
		assert.True(t, s.LoggedIn())
		require.NotNil(t, s.Identity())
		assert.Equal(t, "jane@example.com", s.Identity().Email)
	})

	t.Run("rejected token is purged", func(t *testing.T) {
		mock := &mockAuthClient{
			meFunc: func(ctx context.Context) (*Identity, error) {
				return nil, &RequestError{Status: http.StatusForbidden, Detail: "expired"}
			},
		}
		s, store := newTestSession(t, mock)
		require.NoError(t, store.Set(settings.TokenKey, "stale"))

		err := s.Init(context.Background())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.False(t, s.LoggedIn())
		assert.False(t, store.Has(settings.TokenKey))
	})

	t.Run("expired token purged without a network call", func(t *testing.T) {
		mock := &mockAuthClient{}
		s, store := newTestSession(t, mock)
		stale := makeTokenWithExpiry(t, "jane@example.com", time.Now().Add(-time.Hour))
		require.NoError(t, store.Set(settings.TokenKey, stale))

		err := s.Init(context.Background())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.False(t, s.LoggedIn())
		assert.False(t, store.Has(settings.TokenKey))
		assert.Zero(t, mock.meCalls, "expiry is decided locally")
	})

	t.Run("transient failure keeps token", func(t *testing.T) {
		mock := &mockAuthClient{
			meFunc: func(ctx context.Context) (*Identity, error) {
				return nil, &NetworkError{Err: context.DeadlineExceeded}
			},
		}
		s, store := newTestSession(t, mock)
		require.NoError(t, store.Set(settings.TokenKey, "tok123"))

		err := s.Init(context.Background())
		assert.Error(t, err)
		assert.True(t, s.LoggedIn())
		assert.Equal(t, "tok123", store.GetString(settings.TokenKey))
	})
}

func TestSessionLogout(t *testing.T) {
	mock := &mockAuthClient{}
	s, store := newTestSession(t, mock)
	require.NoError(t, s.Login(context.Background(), "tok123"))

	var changes []SessionChange
	sub := events.Subscribe(func(evt SessionChange) { changes = append(changes, evt) })
	defer events.Unsubscribe(sub)

	require.NoError(t, s.Logout())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.Identity())
	assert.False(t, store.Has(settings.TokenKey))
	require.Len(t, changes, 1)
	assert.False(t, changes[0].LoggedIn)
}

func TestSessionReplaceIdentity(t *testing.T) {
	s, _ := newTestSession(t, &mockAuthClient{})
	s.ReplaceIdentity(&Identity{ID: 2, Name: "Joe", Email: "joe@example.com"})
	require.NotNil(t, s.Identity())
	assert.Equal(t, "Joe", s.Identity().Name)
}

func TestIsTokenRejected(t *testing.T) {
	assert.True(t, isTokenRejected(&RequestError{Status: http.StatusUnauthorized}))
	assert.True(t, isTokenRejected(&RequestError{Status: http.StatusForbidden}))
	assert.False(t, isTokenRejected(&RequestError{Status: http.StatusInternalServerError}))
	assert.False(t, isTokenRejected(&NetworkError{Err: context.DeadlineExceeded}))
}
