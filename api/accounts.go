package api

import (
	"context"
	"net/http"

	"goflare.io/storefront/models"
)

func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	in := map[string]string{"email": email, "password": password}
	var out models.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/accounts/login/", in, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout asks the backend to invalidate refreshToken.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	in := map[string]string{"refresh_token": refreshToken}
	return c.doJSON(ctx, http.MethodPost, "/accounts/logout/", in, true, nil)
}

func (c *Client) Register(ctx context.Context, reg *models.Registration) (*models.Identity, error) {
	var out models.Identity
	if err := c.doJSON(ctx, http.MethodPost, "/accounts/register/", reg, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
