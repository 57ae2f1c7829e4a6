// Package api implements the session store, the authenticated request
// gateway, and the account operations of the SubSense client.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/subsense/subsense/common/settings"
	"github.com/subsense/subsense/traces"
)

const tracerName = "github.com/subsense/subsense/api"

// Client bundles the session store, the web client, and the auth client into
// one owned object graph. Components that need session state receive it by
// reference from here; nothing reaches into a global.
type Client struct {
	Session    *SessionStore
	wc         *WebClient
	authClient AuthClient
}

// NewClient wires a Client against the given backend base URL. The web
// client draws its bearer token from the session store on every request.
func NewClient(store *settings.Store, baseURL string, httpClient *http.Client) *Client {
	session := newSessionStore(store)
	wc := NewWebClient(&Opts{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		Token:      session.Token,
		DeviceID:   deviceID(store),
	})
	auth := &authClient{wc: wc}
	session.auth = auth
	return &Client{
		Session:    session,
		wc:         wc,
		authClient: auth,
	}
}

// WebClient returns the authenticated request gateway shared by all
// components of this client.
func (c *Client) WebClient() *WebClient {
	return c.wc
}

// Login signs the user in with email and password. Credentials are validated
// before any network call; validation failures never reach the wire.
func (c *Client) Login(ctx context.Context, email, password string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "login")
	defer span.End()
	if err := validateEmailAddress(email); err != nil {
		return err
	}
	token, err := c.authClient.Login(ctx, email, password)
	if err != nil {
		return traces.RecordError(ctx, err)
	}
	return traces.RecordError(ctx, c.Session.Login(ctx, token))
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, name, email, password string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "sign_up")
	defer span.End()
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateEmailAddress(email); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	token, err := c.authClient.SignUp(ctx, name, email, password)
	if err != nil {
		return traces.RecordError(ctx, err)
	}
	return traces.RecordError(ctx, c.Session.Login(ctx, token))
}

// Logout clears the session. No-op if there is no user logged in.
func (c *Client) Logout(ctx context.Context) error {
	_, span := otel.Tracer(tracerName).Start(ctx, "logout")
	defer span.End()
	return c.Session.Logout()
}

// StartPasswordReset checks that an account exists for the email before the
// reset form proceeds to the new-password step.
func (c *Client) StartPasswordReset(ctx context.Context, email string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "start_password_reset")
	defer span.End()
	if err := validateEmailAddress(email); err != nil {
		return err
	}
	return traces.RecordError(ctx, c.authClient.ValidateEmail(ctx, email))
}

// CompletePasswordReset sets a new password for the account.
func (c *Client) CompletePasswordReset(ctx context.Context, email, newPassword string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "complete_password_reset")
	defer span.End()
	if err := validateEmailAddress(email); err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	return traces.RecordError(ctx, c.authClient.ResetPassword(ctx, email, newPassword))
}

// deviceID returns the persisted installation identifier, generating one on
// first use.
func deviceID(store *settings.Store) string {
	if id := store.GetString(settings.DeviceIDKey); id != "" {
		return id
	}
	id := uuid.NewString()
	if err := store.Set(settings.DeviceIDKey, id); err != nil {
		slog.Warn("failed to persist device id", "error", err)
	}
	return id
}
