package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nikolayk812/storefront/internal/domain"
)

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userEnvelope struct {
	User *domain.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (domain.User, error) {
	return c.authenticate(ctx, "login", credentials{Email: email, Password: password})
}

func (c *Client) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	return c.authenticate(ctx, "register", credentials{Name: name, Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, endpoint string, creds credentials) (domain.User, error) {
	var resp userEnvelope

	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"api", endpoint},
		body:   creds,
	}, &resp)
	if err != nil {
		return domain.User{}, fmt.Errorf("c.do: %w", err)
	}

	if resp.User == nil || resp.User.IsZero() {
		return domain.User{}, errors.New("response has no user")
	}

	return *resp.User, nil
}
