// Package remote talks to the auth service that owns user accounts.
package remote

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/users"
)

// Endpoint paths relative to the service base URL
const (
	PathLogin       = "/api/auth/auto-login"
	PathLogout      = "/api/auth/logout"
	PathRefresh     = "/api/auth/refresh-token"
	PathVerifyToken = "/api/auth/verify-token"
)

var (
	// ErrRejected means the service answered and refused the request
	ErrRejected = apperrors.ErrRemoteRejected
	// ErrUnreachable means no usable answer was received
	ErrUnreachable = apperrors.ErrRemoteUnreachable
)

// TokenPair is the credential pair issued by the service.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is a successful login: who the user is and their tokens.
type LoginResult struct {
	User   users.User
	Tokens TokenPair
}

// TokenVerifier checks that an access token is still accepted.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) error
}

// Service is the remote auth service contract.
type Service interface {
	TokenVerifier
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// StatusError is a non-2xx answer. Client errors match ErrRejected and server
// errors match ErrUnreachable, so an outage is never counted as bad credentials.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth service returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("auth service returned %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return e.StatusCode < http.StatusInternalServerError
	case ErrUnreachable:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// IsRejected reports whether err is an explicit refusal by the service
func IsRejected(err error) bool {
	return apperrors.Is(err, ErrRejected)
}

// IsUnreachable reports whether err is a transport level failure
func IsUnreachable(err error) bool {
	return apperrors.Is(err, ErrUnreachable)
}
