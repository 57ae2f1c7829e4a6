package api

import (
	"context"
)

// Identity is the account identity as reported by the backend. It is replaced
// wholesale on each hydration and is otherwise opaque beyond display.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthClient talks to the account endpoints of the backend. Login, SignUp,
// ValidateEmail, and ResetPassword are anonymous; Me requires a bearer token.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (string, error)
	SignUp(ctx context.Context, name, email, password string) (string, error)
	Me(ctx context.Context) (*Identity, error)
	ValidateEmail(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
}

type authClient struct {
	wc *WebClient
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a bearer token.
func (c *authClient) Login(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	req := c.wc.NewRequest(nil, nil, map[string]string{
		"email":    email,
		"password": password,
	})
	if err := c.wc.Post(ctx, "/login", req, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// SignUp registers a new account and returns its bearer token.
func (c *authClient) SignUp(ctx context.Context, name, email, password string) (string, error) {
	var resp tokenResponse
	req := c.wc.NewRequest(nil, nil, map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err := c.wc.Post(ctx, "/signup", req, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Me returns the identity the current bearer token belongs to.
func (c *authClient) Me(ctx context.Context) (*Identity, error) {
	var resp Identity
	if err := c.wc.Get(ctx, "/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateEmail checks that an account exists for the given address. Used by
// the password reset flow before a new password is accepted.
func (c *authClient) ValidateEmail(ctx context.Context, email string) error {
	req := c.wc.NewRequest(nil, nil, map[string]string{"email": email})
	return c.wc.Post(ctx, "/validate-email", req, nil)
}

// ResetPassword sets a new password for the given account.
func (c *authClient) ResetPassword(ctx context.Context, email, newPassword string) error {
	req := c.wc.NewRequest(nil, nil, map[string]string{
		"email":        email,
		"new_password": newPassword,
	})
	return c.wc.Post(ctx, "/reset-password", req, nil)
}
