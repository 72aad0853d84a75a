package session

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/remote"
)

var (
	ErrInvalidCredentials = apperrors.ErrInvalidCredentials
	ErrLocked             = apperrors.ErrAccountLocked
	ErrLoginInProgress    = apperrors.ErrLoginInProgress
	ErrNotAuthenticated   = apperrors.ErrNotAuthenticated
	ErrRefreshFailed      = apperrors.ErrRefreshFailed
	ErrNetwork            = remote.ErrUnreachable
)

// Kind classifies an AuthError.
type Kind int

const (
	KindInvalidCredentials Kind = iota + 1
	KindNetworkError
	KindLocked
	KindRefreshFailed
	KindValidationFallback
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindNetworkError:
		return "NetworkError"
	case KindLocked:
		return "Locked"
	case KindRefreshFailed:
		return "RefreshFailed"
	case KindValidationFallback:
		return "ValidationFallback"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// AuthError is returned by the manager for authentication failures. Its
// message is meant to be shown to the user.
type AuthError struct {
	Kind              Kind
	RemainingMinutes  int   // set for KindLocked
	RemainingAttempts int   // failures left before lockout, for login failures
	Err               error // underlying cause, if any
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case KindLocked:
		return fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minute(s).", e.RemainingMinutes)
	case KindInvalidCredentials:
		return fmt.Sprintf("Email ou mot de passe incorrect. Il vous reste %d tentative(s).", e.RemainingAttempts)
	case KindNetworkError:
		return fmt.Sprintf("Impossible de contacter le serveur. Il vous reste %d tentative(s).", e.RemainingAttempts)
	case KindRefreshFailed:
		return ReasonExpired
	case KindValidationFallback:
		return "Vérification de la session impossible, session locale conservée"
	}
	return "Erreur d'authentification"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is maps each kind onto its sentinel so callers can use errors.Is.
func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrLocked:
		return e.Kind == KindLocked
	case ErrInvalidCredentials:
		return e.Kind == KindInvalidCredentials
	case ErrRefreshFailed:
		return e.Kind == KindRefreshFailed
	case ErrNetwork:
		return e.Kind == KindNetworkError
	}
	return false
}
