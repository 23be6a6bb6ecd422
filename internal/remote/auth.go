package remote

import (
	"context"
	"net/http"
	"strings"

	"docflow/internal/model"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/user/register"
)

// isAuthPath reports the endpoints that answer 401 for bad credentials
// rather than for a stale token.
func isAuthPath(p string) bool {
	return strings.HasSuffix(p, apiPrefix+loginPath) || strings.HasSuffix(p, apiPrefix+registerPath)
}

type RegisterRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	FullName string     `json:"fullName"`
	Role     model.Role `json:"role"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out authResponse
	err := c.call(ctx, "auth.login", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
			"email":    email,
			"password": password,
		}, &out)
	})
	return out.AccessToken, err
}

// Register creates an account and returns its first access token.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (string, error) {
	var out authResponse
	err := c.call(ctx, "auth.register", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/user/register", in, &out)
	})
	return out.AccessToken, err
}
