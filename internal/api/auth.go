package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hearthlabs/hearthview/pkg/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with the server, which sets the session cookie on
// the jar as a side effect. The client never holds a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := c.post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &user); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &user, nil
}

// Logout clears the server-side session. A 401 here just means the
// session was already gone, so it is not broadcast as an expiry.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil, reqOpts{quiet401: true})
	if err != nil && !IsStatus(err, http.StatusUnauthorized) {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me is the session probe. It returns (nil, nil) when the server
// reports no valid session: an expected answer during bootstrap, not a
// surprise expiry, so no unauthorized event is broadcast.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user, reqOpts{quiet401: true})
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			return nil, nil
		}
		return nil, fmt.Errorf("session probe: %w", err)
	}
	return &user, nil
}
