package remote

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier checks ID tokens locally against the issuer's signing keys
// instead of calling the verify-token endpoint.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ TokenVerifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier discovers the issuer's keys from its well-known document.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[NewOIDCVerifier] %w: failed to get provider: %v", ErrUnreachable, err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// NewStaticOIDCVerifier verifies against a fixed set of public keys.
func NewStaticOIDCVerifier(issuer, clientID string, keys ...crypto.PublicKey) *OIDCVerifier {
	keySet := &oidc.StaticKeySet{PublicKeys: keys}
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}),
	}
}

// Verify fails with ErrRejected for a bad token and ErrUnreachable when the
// signing keys could not be fetched.
func (v *OIDCVerifier) Verify(ctx context.Context, accessToken string) error {
	_, err := v.verifier.Verify(ctx, accessToken)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "fetching keys") {
		return fmt.Errorf("[OIDCVerifier.Verify] %w: %v", ErrUnreachable, err)
	}
	return fmt.Errorf("[OIDCVerifier.Verify] %w: %v", ErrRejected, err)
}
