package oidc

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ErrInvalidExternalToken is returned for every verification failure:
// bad signature, audience mismatch, expiry, malformed input, and key-set
// fetch errors or timeouts.
var ErrInvalidExternalToken = errors.New("invalid external identity token")

// ExternalIdentity holds attributes read from a verified provider token.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
	// RawClaims is the verified payload, used for role mapping.
	RawClaims json.RawMessage
}

// Login returns the email when present, otherwise the subject.
func (e *ExternalIdentity) Login() string {
	if e.Email != "" {
		return e.Email
	}
	return e.Subject
}

type profileClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
}

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	client   *http.Client
	timeout  time.Duration
}

// NewVerifier discovers the provider at issuer and verifies tokens issued to
// clientID. Signing keys come from the provider's JWKS endpoint and are
// cached; a token signed with an unknown key id triggers a refetch, so key
// rotation needs no restart. timeout bounds discovery, key fetches and each
// Verify call.
func NewVerifier(ctx context.Context, issuer, clientID string, timeout time.Duration) (*Verifier, error) {
	client := &http.Client{Timeout: timeout}
	dctx := oidc.ClientContext(ctx, client)
	if timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(dctx, timeout)
		defer cancel()
	}
	provider, err := oidc.NewProvider(dctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{verifier: verifier, client: client, timeout: timeout}, nil
}

// NewStaticVerifier verifies tokens against a fixed set of public keys,
// for providers without discovery.
func NewStaticVerifier(issuer, clientID string, timeout time.Duration, keys ...crypto.PublicKey) *Verifier {
	ks := &oidc.StaticKeySet{PublicKeys: keys}
	verifier := oidc.NewVerifier(issuer, ks, &oidc.Config{ClientID: clientID})
	return &Verifier{verifier: verifier, client: http.DefaultClient, timeout: timeout}
}

// Verify validates raw and extracts the identity. Nothing from the payload
// is read before the signature, audience and expiry checks pass.
func (v *Verifier) Verify(ctx context.Context, raw string) (*ExternalIdentity, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	idToken, err := v.verifier.Verify(oidc.ClientContext(ctx, v.client), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExternalToken, err)
	}
	if idToken.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidExternalToken)
	}

	var rawClaims json.RawMessage
	if err := idToken.Claims(&rawClaims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExternalToken, err)
	}
	var pc profileClaims
	if err := json.Unmarshal(rawClaims, &pc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExternalToken, err)
	}
	name := pc.Name
	if name == "" {
		name = pc.PreferredUsername
	}
	return &ExternalIdentity{
		Subject:   idToken.Subject,
		Email:     pc.Email,
		Name:      name,
		Picture:   pc.Picture,
		RawClaims: rawClaims,
	}, nil
}
