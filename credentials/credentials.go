// Package credentials keeps the access and refresh token pair for the
// current session in volatile storage.
package credentials

import (
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// StorageKey is the volatile key holding the token pair
const StorageKey = "authCredentials"

// Credentials is the token pair obtained from the remote auth service.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Expiry returns the exp claim of the access token when it is a JWT.
// The token is not verified; the remote service remains the authority.
func (c Credentials) Expiry() (time.Time, bool) {
	claims, ok := c.Claims()
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Claims returns the unverified claims of a JWT access token. ok is false for
// opaque tokens.
func (c Credentials) Claims() (jwtlib.MapClaims, bool) {
	if strings.Count(c.AccessToken, ".") != 2 {
		return nil, false
	}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(c.AccessToken, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// OAuth2Token exposes the pair as a bearer token for oauth2 HTTP clients.
func (c Credentials) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	if exp, ok := c.Expiry(); ok {
		tok.Expiry = exp
	}
	return tok
}

// Store saves and clears credentials as one pair.
type Store struct {
	store storage.Store
	mu    sync.Mutex
}

func NewStore(s storage.Store) *Store {
	return &Store{store: s}
}

// Save writes the pair in a single value so readers never see half of it
func (cs *Store) Save(c Credentials) error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return errors.Wrap(apperrors.ErrInvalidToken, "[Store.Save] empty access token")
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if err := storage.SetJSON(cs.store, StorageKey, c); err != nil {
		return errors.Wrap(err, "[Store.Save]")
	}
	return nil
}

// Load returns the stored pair. ok is false when nothing is stored.
func (cs *Store) Load() (Credentials, bool, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var c Credentials
	err := storage.GetJSON(cs.store, StorageKey, &c)
	switch {
	case apperrors.Is(err, storage.ErrNotFound):
		return Credentials{}, false, nil
	case err != nil:
		return Credentials{}, false, errors.Wrap(err, "[Store.Load]")
	}
	return c, c.AccessToken != "", nil
}

// Clear removes both tokens
func (cs *Store) Clear() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if err := cs.store.Delete(StorageKey); err != nil {
		return errors.Wrap(err, "[Store.Clear]")
	}
	return nil
}

// AccessToken returns the stored access token or an empty string
func (cs *Store) AccessToken() string {
	c, ok, err := cs.Load()
	if err != nil || !ok {
		return ""
	}
	return c.AccessToken
}

func (cs *Store) HasAccessToken() bool {
	return cs.AccessToken() != ""
}
