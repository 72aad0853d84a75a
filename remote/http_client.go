package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Config is the subset of the remote configuration the client needs.
type Config interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying client, e.g. httptest.Server.Client()
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithLogoutRetry sets how many times a logout notification is attempted.
func WithLogoutRetry(attempts uint, delay time.Duration) Option {
	return func(c *HTTPClient) {
		c.logoutAttempts = attempts
		c.logoutDelay = delay
	}
}

// HTTPClient implements Service over HTTP.
type HTTPClient struct {
	baseURL        string
	timeout        time.Duration
	client         *http.Client
	logger         zerolog.Logger
	logoutAttempts uint
	logoutDelay    time.Duration
}

var _ Service = (*HTTPClient)(nil)

func NewHTTPClient(cfg Config, options ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:        strings.TrimRight(cfg.GetBaseURL(), "/"),
		timeout:        cfg.GetHTTPTimeout(),
		client:         http.DefaultClient,
		logger:         log.Logger,
		logoutAttempts: 3,
		logoutDelay:    200 * time.Millisecond,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.logoutAttempts == 0 {
		c.logoutAttempts = 1
	}
	return c
}

// Login posts the form encoded credentials.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathLogin, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("[HTTPClient.Login] failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body LoginResponse
	if err := c.do(c.client, req, &body); err != nil {
		return nil, fmt.Errorf("[HTTPClient.Login] %w", err)
	}
	result, err := body.toResult(email)
	if err != nil {
		return nil, fmt.Errorf("[HTTPClient.Login] %w", err)
	}
	return result, nil
}

// Logout notifies the service that the access token is no longer in use.
// Transport failures and server errors are retried; refusals are not.
func (c *HTTPClient) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("[HTTPClient.Logout] %w", apperrors.ErrNotAuthenticated)
	}
	err := retry.Do(
		func() error {
			return c.postWithBearer(ctx, PathLogout, accessToken)
		},
		retry.Context(ctx),
		retry.Attempts(c.logoutAttempts),
		retry.Delay(c.logoutDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsUnreachable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug().Uint("attempt", n+1).Err(err).Msg("retrying logout notification")
		}),
	)
	if err != nil {
		return fmt.Errorf("[HTTPClient.Logout] %w", err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("[HTTPClient.Refresh] %w", apperrors.ErrNoRefreshToken)
	}
	payload, err := json.Marshal(RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("[HTTPClient.Refresh] failed to marshal request body: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathRefresh, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("[HTTPClient.Refresh] failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var body RefreshResponse
	if err := c.do(c.client, req, &body); err != nil {
		return nil, fmt.Errorf("[HTTPClient.Refresh] %w", err)
	}
	pair, err := body.toPair(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("[HTTPClient.Refresh] %w", err)
	}
	return pair, nil
}

// Verify succeeds when the service answers 2xx for the token.
func (c *HTTPClient) Verify(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("[HTTPClient.Verify] %w", apperrors.ErrNotAuthenticated)
	}
	if err := c.postWithBearer(ctx, PathVerifyToken, accessToken); err != nil {
		return fmt.Errorf("[HTTPClient.Verify] %w", err)
	}
	return nil
}

func (c *HTTPClient) postWithBearer(ctx context.Context, path, accessToken string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(c.bearerClient(ctx, accessToken), req, nil)
}

// bearerClient wraps the base client so every request carries the token.
func (c *HTTPClient) bearerClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

func (c *HTTPClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// do sends the request and decodes a 2xx JSON body into target when set.
func (c *HTTPClient) do(client *http.Client, req *http.Request, target any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		statusErr := &StatusError{StatusCode: resp.StatusCode}

		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			statusErr.Message = errResp.Message
			if statusErr.Message == "" {
				statusErr.Message = errResp.Error
			}
		}
		c.logger.Debug().Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("auth service refused request")
		return statusErr
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnreachable, err)
	}
	return nil
}
