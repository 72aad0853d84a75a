package remote

import (
	"fmt"

	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/users"
)

// LoginResponse is the body of a successful auto-login.
type LoginResponse struct {
	UserID   string `json:"userId"`
	UserData struct {
		Nom string `json:"nom"`
	} `json:"userData"`
	Role        string   `json:"role"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`

	// IDToken is used as the session access token
	IDToken string `json:"idToken"`
	// CustomToken is exchanged for a fresh pair at the refresh endpoint
	CustomToken string `json:"customToken"`
}

func (lr LoginResponse) toResult(email string) (*LoginResult, error) {
	if lr.UserID == "" || lr.IDToken == "" {
		return nil, fmt.Errorf("%w: login response is missing userId or idToken", ErrUnreachable)
	}
	return &LoginResult{
		User: users.User{
			ID:          lr.UserID,
			Name:        lr.UserData.Nom,
			Email:       email,
			Role:        lr.Role,
			Roles:       lr.Roles,
			Permissions: lr.Permissions,
		},
		Tokens: TokenPair{AccessToken: lr.IDToken, RefreshToken: lr.CustomToken},
	}, nil
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse accepts both OAuth style and service style field names.
type RefreshResponse struct {
	AccessToken     string `json:"access_token,omitempty"`
	IDToken         string `json:"idToken,omitempty"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	RefreshTokenAlt string `json:"refreshToken,omitempty"`
	TokenType       string `json:"token_type,omitempty"`
	ExpiresIn       int    `json:"expires_in,omitempty"`
}

// toPair keeps the presented refresh token when the service does not rotate it
func (rr RefreshResponse) toPair(presented string) (*TokenPair, error) {
	access := utils.FirstNonEmpty(rr.AccessToken, rr.IDToken)
	if access == "" {
		return nil, fmt.Errorf("%w: refresh response has no access token", ErrUnreachable)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: utils.FirstNonEmpty(rr.RefreshToken, rr.RefreshTokenAlt, presented),
	}, nil
}

// ErrorResponse is the error body returned by the service.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
