package spotify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subsense/subsense/api"
	"github.com/subsense/subsense/common/settings"
)

// linkBackend fakes the account and provider-link endpoints with just enough
// state to observe the client's behavior.
type linkBackend struct {
	mu            sync.Mutex
	token         string
	connected     bool
	connectCalls  int
	connectStatus []int // per-call response codes for connect-with-subscription; empty means 200
	lastIntent    map[string]any
	meCalls       int
}

func newLinkBackend(token string) *linkBackend {
	return &linkBackend{token: token}
}

func (b *linkBackend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+b.token
}

func (b *linkBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.meCalls++
		b.mu.Unlock()
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Not authenticated"}`))
			return
		}
		w.Write([]byte(`{"id": 1, "name": "Jane", "email": "jane@example.com"}`))
	})
	mux.HandleFunc("/api/spotify/status", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		connected := b.connected
		b.mu.Unlock()
		if connected {
			w.Write([]byte(`{"connected": true}`))
			return
		}
		w.Write([]byte(`{"connected": false}`))
	})
	mux.HandleFunc("/api/spotify/profile", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		connected := b.connected
		b.mu.Unlock()
		if !connected {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "Spotify not connected"}`))
			return
		}
		w.Write([]byte(`{"id": "sp1", "display_name": "Jane", "email": "jane@example.com", "country": "US", "product": "premium"}`))
	})
	mux.HandleFunc("/api/spotify/disconnect", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(connectWithSubscriptionPath, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		call := b.connectCalls
		b.connectCalls++
		var intent map[string]any
		if err := json.NewDecoder(r.Body).Decode(&intent); err == nil {
			b.lastIntent = intent
		}
		status := http.StatusOK
		if call < len(b.connectStatus) {
			status = b.connectStatus[call]
		}
		if status == http.StatusOK {
			b.connected = true
		}
		b.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"detail": "connect failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (b *linkBackend) connectCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectCalls
}

func (b *linkBackend) lastIntentBody() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastIntent
}

func (b *linkBackend) meCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meCalls
}

// newLinkClient spins up the fake backend and an api client pointed at it.
func newLinkClient(t *testing.T, backend *linkBackend) (*api.Client, *settings.Store, string) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	store, err := settings.New(t.TempDir())
	require.NoError(t, err)
	return api.NewClient(store, srv.URL, nil), store, srv.URL
}
