package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// LoginResult is a successful platform login.
type LoginResult struct {
	Token    string
	Operator models.Operator
}

// Login exchanges operator credentials for a platform bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var resp loginResponse
	err := c.do(ctx, nil, http.MethodPost, "/auth/login", nil, loginBody{Email: email, Password: password}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Rejected || apiErr.StatusCode < 500) {
			return LoginResult{}, fmt.Errorf("%w: %s", ErrLoginRejected, apiErr.Message)
		}
		return LoginResult{}, err
	}
	if resp.Token == "" {
		return LoginResult{}, fmt.Errorf("%w: no token received", ErrLoginRejected)
	}

	op := models.Operator{
		ID:    resp.User.ID,
		Name:  resp.User.Name,
		Email: resp.User.Email,
	}
	if op.Email == "" {
		op.Email = email
	}
	return LoginResult{Token: resp.Token, Operator: op}, nil
}
