package client

import "context"

// Login authenticates and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var s Session
	if err := c.post(ctx, "/api/v1/auth/login", body, &s, nil); err != nil {
		return nil, err
	}
	c.setToken(s.AccessToken)
	return &s, nil
}

// Refresh rotates the session and swaps in the new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var s Session
	if err := c.post(ctx, "/api/v1/auth/refresh", body, &s, nil); err != nil {
		return nil, err
	}
	c.setToken(s.AccessToken)
	return &s, nil
}

// Logout revokes the session and forgets the token even if the call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.post(ctx, "/api/v1/auth/logout", nil, nil, nil)
	c.setToken("")
	return err
}

func (c *Client) AssetTypes(ctx context.Context) ([]AssetType, error) {
	var out []AssetType
	if err := c.get(ctx, "/api/v1/asset-types", &out); err != nil {
		return nil, err
	}
	return out, nil
}
