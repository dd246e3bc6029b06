package restclient

import (
	"context"
	"net/http"

	"github.com/campusbeacon/beacon/internal/model"
)

// Login posts credentials; the collaborator answers with the user and sets
// the session cookie kept by the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var user model.User
	err := c.DoRecord(ctx, http.MethodPost, "/auth/login", model.Credentials{Email: email, Password: password}, &user)
	return user, err
}

// Signup registers a new account and signs it in.
func (c *Client) Signup(ctx context.Context, creds model.Credentials) (model.User, error) {
	var user model.User
	err := c.DoRecord(ctx, http.MethodPost, "/auth/signup", creds, &user)
	return user, err
}

// CurrentUser returns the account bound to the session cookie.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var user model.User
	err := c.DoRecord(ctx, http.MethodGet, "/auth/me", nil, &user)
	return user, err
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}
