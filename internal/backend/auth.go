package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/erazemk/stockboard/internal/model"
)

// AuthService wraps the /auth endpoints.
type AuthService struct {
	c *Client
}

// TokenResponse is the body of a successful login. Some backends add the
// user's fields next to the token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ID          int64  `json:"id,omitempty"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
}

// Login exchanges credentials for a bearer token. The backend expects an
// OAuth2 password form, so the email goes in the username field.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	form := url.Values{
		"username": {strings.TrimSpace(email)},
		"password": {password},
	}

	var tok TokenResponse
	err := s.c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("login response has no access_token")
	}
	return &tok, nil
}

// Register creates an account. The backend's response body is not used.
func (s *AuthService) Register(ctx context.Context, reg model.Registration) error {
	return s.c.doJSON(ctx, http.MethodPost, "/auth/register", nil, reg, nil)
}

// Profile returns the user that owns the bearer token in ctx.
func (s *AuthService) Profile(ctx context.Context) (*model.Identity, error) {
	var user model.Identity
	if err := s.c.doJSON(ctx, http.MethodGet, s.c.profilePath, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
