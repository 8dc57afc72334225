package auth

import (
	"context"
	"errors"
)

var (
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProviderFailure    = errors.New("auth provider unavailable")
)

// RoleAuthenticated is the role Supabase assigns to signed-in users. Tokens
// carrying any other role (the anon key, service keys) are not user tokens.
const RoleAuthenticated = "authenticated"

// Identity represents an authenticated user's claims.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Session is what the identity provider returns on signup or login.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in,omitempty"`
	User         SessionUser `json:"user"`
}

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider creates and signs in users. GoTrueClient is the production
// implementation.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
}
