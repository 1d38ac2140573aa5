// Package authclient calls the remote API's authentication endpoints.
package authclient

import (
	"net/http"

	"bookshelf/internal/apiclient"
	"bookshelf/pkg/domain"
)

// Client calls the auth endpoints of the remote API.
type Client struct {
	api *apiclient.Client
}

// NewClient constructs an auth client against the API base URL.
func NewClient(baseURL string) *Client {
	return &Client{api: apiclient.New(baseURL)}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp loginResponse
	if err := c.api.DoJSON(http.MethodPost, "/auth/login", "", payload, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Register creates a new account. It does not authenticate the account.
func (c *Client) Register(name, email, password string) error {
	payload := map[string]string{"name": name, "email": email, "password": password}
	return c.api.DoJSON(http.MethodPost, "/auth/register", "", payload, nil)
}

// Me resolves the identity behind a bearer token.
func (c *Client) Me(token string) (domain.User, error) {
	var user domain.User
	if err := c.api.DoJSON(http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

type loginResponse struct {
	Token string `json:"token"`
}
