package config

import "time"

const (
	baseURLVar      = "AUTH_BASE_URL"
	httpTimeoutVar  = "AUTH_HTTP_TIMEOUT_MILLIS"
	oidcIssuerVar   = "AUTH_OIDC_ISSUER"
	oidcClientIDVar = "AUTH_OIDC_CLIENT_ID"
)

type RemoteConfig interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetOIDCIssuer() string
	GetOIDCClientID() string
}

type Remote struct {
	file *FileConfig
}

var _ RemoteConfig = Remote{}

// GetBaseURL returns the base URL of the remote auth service (e.g., "https://app.example.com")
func (r Remote) GetBaseURL() string {
	return GetEnv(baseURLVar, orString(r.file.BaseURL, "http://localhost:8080"))
}

func (r Remote) GetHTTPTimeout() time.Duration {
	return millis(GetEnvInt(httpTimeoutVar, r.file.HTTPTimeoutMillis), 30*time.Second)
}

// GetOIDCIssuer enables local ID token verification when set.
func (r Remote) GetOIDCIssuer() string {
	return GetEnv(oidcIssuerVar, r.file.OIDCIssuer)
}

func (r Remote) GetOIDCClientID() string {
	return GetEnv(oidcClientIDVar, r.file.OIDCClientID)
}
