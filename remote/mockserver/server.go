// Package mockserver serves the auth service endpoints for development and
// tests. Accounts live in memory and tokens are HS256 JWTs.
package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-auth-session/remote"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	DefaultIssuer      = "go-auth-session-mock"
	DefaultAccessTTL   = time.Hour
	invalidCredentials = "Email ou mot de passe incorrect"
)

type Option func(*Server)

func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

func WithIssuer(issuer string) Option {
	return func(s *Server) {
		s.issuer = issuer
	}
}

func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server implements the four auth endpoints over an account repository.
type Server struct {
	router    *mux.Router
	accounts  users.AccountRepo
	secret    []byte
	issuer    string
	accessTTL time.Duration
	logger    zerolog.Logger

	lock          sync.Mutex
	refreshTokens map[string]string // refresh token to account id
	revoked       map[string]bool   // jti of logged out access tokens
}

func New(accounts users.AccountRepo, options ...Option) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		accounts:      accounts,
		secret:        []byte(uuid.New().String()),
		issuer:        DefaultIssuer,
		accessTTL:     DefaultAccessTTL,
		logger:        log.Logger,
		refreshTokens: make(map[string]string),
		revoked:       make(map[string]bool),
	}
	for _, opt := range options {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc(remote.PathLogin, s.LoginHandler()).Methods(http.MethodPost)
	s.router.HandleFunc(remote.PathLogout, s.LogoutHandler()).Methods(http.MethodPost)
	s.router.HandleFunc(remote.PathRefresh, s.RefreshHandler()).Methods(http.MethodPost)
	s.router.HandleFunc(remote.PathVerifyToken, s.VerifyHandler()).Methods(http.MethodPost)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("mock auth request")
		next.ServeHTTP(w, r)
	})
}

// LoginHandler answers the form encoded auto-login request.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		if email == "" || password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		account, err := s.accounts.GetByEmail(email)
		if err != nil || !users.CheckPasswordHash(password, account.PasswordHash) {
			s.logger.Info().Str("email", email).Msg("mock login refused")
			writeError(w, http.StatusUnauthorized, invalidCredentials)
			return
		}
		if account.Blocked {
			writeError(w, http.StatusForbidden, "account blocked")
			return
		}

		idToken, err := s.createIDToken(account)
		if err != nil {
			s.logger.Err(err).Msg("[Server.LoginHandler] signing token")
			writeError(w, http.StatusInternalServerError, "token error")
			return
		}

		resp := remote.LoginResponse{
			UserID:      account.ID,
			Role:        account.Role,
			Roles:       account.Roles,
			Permissions: account.Permissions,
			IDToken:     idToken,
			CustomToken: s.issueRefreshToken(account.ID),
		}
		resp.UserData.Nom = account.Name
		writeJSON(w, http.StatusOK, resp)
	}
}

// LogoutHandler revokes the bearer token. Unknown tokens are accepted.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if claims, err := s.parse(raw); err == nil {
			s.lock.Lock()
			if jti, _ := claims["jti"].(string); jti != "" {
				s.revoked[jti] = true
			}
			if sub, _ := claims["sub"].(string); sub != "" {
				for token, id := range s.refreshTokens {
					if id == sub {
						delete(s.refreshTokens, token)
					}
				}
			}
			s.lock.Unlock()
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// RefreshHandler rotates the refresh token and mints a new access token.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refreshToken is required")
			return
		}

		s.lock.Lock()
		accountID, ok := s.refreshTokens[req.RefreshToken]
		delete(s.refreshTokens, req.RefreshToken)
		s.lock.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}

		account, err := s.accounts.GetByID(accountID)
		if err != nil || account.Blocked {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		accessToken, err := s.createIDToken(account)
		if err != nil {
			s.logger.Err(err).Msg("[Server.RefreshHandler] signing token")
			writeError(w, http.StatusInternalServerError, "token error")
			return
		}
		writeJSON(w, http.StatusOK, remote.RefreshResponse{
			AccessToken:  accessToken,
			RefreshToken: s.issueRefreshToken(account.ID),
			TokenType:    "Bearer",
			ExpiresIn:    int(s.accessTTL.Seconds()),
		})
	}
}

// VerifyHandler answers 200 for a valid, unrevoked bearer token.
func (s *Server) VerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		s.lock.Lock()
		jti, _ := claims["jti"].(string)
		revoked := s.revoked[jti]
		s.lock.Unlock()
		if revoked {
			writeError(w, http.StatusUnauthorized, "token revoked")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

func (s *Server) createIDToken(account *users.Account) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss":   s.issuer,
		"sub":   account.ID,
		"email": account.Email,
		"name":  account.Name,
		"role":  account.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTTL).Unix(),
		"jti":   uuid.New().String(),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("[Server.createIDToken] %w", err)
	}
	return token, nil
}

func (s *Server) issueRefreshToken(accountID string) string {
	token := uuid.New().String()
	s.lock.Lock()
	s.refreshTokens[token] = accountID
	s.lock.Unlock()
	return token
}

func (s *Server) parse(raw string) (jwtlib.MapClaims, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(s.issuer),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, remote.ErrorResponse{Error: http.StatusText(status), Message: message})
}
