// Package spotify implements the provider-linking side of the SubSense
// client: the redirect-based link flow, the cross-window completion protocol,
// and the reconciliation of a subscription intent buffered across the
// redirect boundary.
package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/subsense/subsense/api"
	"github.com/subsense/subsense/events"
	"github.com/subsense/subsense/traces"
)

const tracerName = "github.com/subsense/subsense/spotify"

// completionTimeout bounds the session update triggered by a completion
// message, which runs outside any caller-provided context.
const completionTimeout = 30 * time.Second

// Profile is the provider profile object as returned by the backend.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

type statusResponse struct {
	Connected bool `json:"connected"`
}

// LinkController drives the provider link flow: it hands out the redirect
// URL, consumes the asynchronous completion message, finalizes the session on
// success, and exposes status/profile/disconnect. Link state is conceptually
// Disconnected -> Redirecting -> ExternalPending -> (Linked | LinkFailed),
// with Disconnect returning a linked account to Disconnected.
type LinkController struct {
	wc       *api.WebClient
	session  *api.SessionStore
	baseURL  string
	onLinked func(ctx context.Context)

	mu      sync.Mutex
	sub     *events.Subscription[LinkSuccess]
	closed  bool
	profile *Profile
}

// NewLinkController creates a controller bound to the given api client.
// onLinked, which may be nil, runs after a completion message has been
// applied and the session holds the new token; the reconciler hangs off it.
func NewLinkController(client *api.Client, baseURL string, onLinked func(ctx context.Context)) *LinkController {
	return &LinkController{
		wc:       client.WebClient(),
		session:  client.Session,
		baseURL:  baseURL,
		onLinked: onLinked,
	}
}

// LoginURL builds the provider authorization URL. The current bearer token is
// carried as a query parameter so the backend can associate the eventual
// completion with this session without shared cookie state.
func (c *LinkController) LoginURL() (string, error) {
	token := c.session.Token()
	if token == "" {
		return "", api.ErrNotLoggedIn
	}
	loginURL, err := url.Parse(c.baseURL + "/api/spotify/login")
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	query := loginURL.Query()
	query.Set("token", token)
	loginURL.RawQuery = query.Encode()
	return loginURL.String(), nil
}

// StartLink registers the completion-message handler and returns the URL the
// browsing context should navigate to. Calling StartLink while a handler is
// already registered does not create a duplicate; the existing registration
// is reused.
func (c *LinkController) StartLink() (string, error) {
	loginURL, err := c.LoginURL()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.closed = false
	if c.sub == nil {
		c.sub = events.Subscribe(c.handleCompletion)
	}
	c.mu.Unlock()
	return loginURL, nil
}

// Close unregisters the completion-message handler. It must be called on
// teardown of the consuming view; closing twice is a no-op.
func (c *LinkController) Close() {
	c.mu.Lock()
	c.closed = true
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		events.Unsubscribe(sub)
	}
}

// handleCompletion applies a link-success message: the fresh token is
// persisted and the identity re-hydrated through the session store, then
// onLinked runs. Events that fail to apply leave the session unchanged apart
// from what SessionStore.Login itself guarantees.
func (c *LinkController) handleCompletion(msg LinkSuccess) {
	// an emit that snapshotted the callback set before Close can still land
	// here; drop it so nothing runs after teardown
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()
	if err := c.session.Login(ctx, msg.Token); err != nil {
		slog.Error("applying link completion", "error", err)
		return
	}
	slog.Info("provider link completed")
	if c.onLinked != nil {
		c.onLinked(ctx)
	}
}

// Status reports whether a provider account is currently linked. The value
// is derived on demand and never cached.
func (c *LinkController) Status(ctx context.Context) (bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "link_status")
	defer span.End()
	var resp statusResponse
	if err := c.wc.Get(ctx, "/api/spotify/status", nil, &resp); err != nil {
		return false, traces.RecordError(ctx, err)
	}
	return resp.Connected, nil
}

// Profile fetches the linked provider profile. Callers should confirm the
// link is connected first. On failure any cached profile is cleared rather
// than left stale.
func (c *LinkController) Profile(ctx context.Context) (*Profile, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "link_profile")
	defer span.End()
	var resp Profile
	if err := c.wc.Get(ctx, "/api/spotify/profile", nil, &resp); err != nil {
		c.setProfile(nil)
		return nil, traces.RecordError(ctx, err)
	}
	c.setProfile(&resp)
	return &resp, nil
}

// CachedProfile returns the last successfully fetched profile, or nil.
func (c *LinkController) CachedProfile() *Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

func (c *LinkController) setProfile(p *Profile) {
	c.mu.Lock()
	c.profile = p
	c.mu.Unlock()
}

// Disconnect unlinks the provider account. On success the cached profile is
// cleared without re-fetching status.
func (c *LinkController) Disconnect(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "link_disconnect")
	defer span.End()
	if err := c.wc.Post(ctx, "/api/spotify/disconnect", nil, nil); err != nil {
		return traces.RecordError(ctx, err)
	}
	c.setProfile(nil)
	return nil
}
