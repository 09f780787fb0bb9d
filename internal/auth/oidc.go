// Package auth verifies bearer JWTs against a remote JWKS and resolves the verified
// email to a Candidate, adapted from the wisbric-nightowl OIDCAuthenticator pattern.
// The authentication provider itself (issuer, identity source) is out of scope (§1) —
// this package only consumes its published keys.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Claims are the JWT claims the control plane depends on.
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// Authenticator validates bearer JWTs against a JWKS fetched via OIDC discovery.
type Authenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewAuthenticator performs OIDC discovery against issuerURL and builds a verifier keyed
// to clientID. This makes a network call at startup to fetch the provider's JWKS, per §9
// ("explicit singletons built at startup with a lifecycle").
func NewAuthenticator(ctx context.Context, issuerURL, clientID string) (*Authenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC provider %s: %w", issuerURL, err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Authenticator{verifier: verifier}, nil
}

// Authenticate validates a raw `Authorization` header value and returns the verified
// claims.
func (a *Authenticator) Authenticate(ctx context.Context, authHeader string) (*Claims, error) {
	token := strings.TrimPrefix(authHeader, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("empty bearer token")
	}

	idToken, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token missing email claim")
	}
	claims.Email = strings.ToLower(claims.Email)
	return &claims, nil
}
