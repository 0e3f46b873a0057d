package identity

import (
	"context"
	"errors"

	"github.com/pemaismais/Projeto-LerDort-backend/internal/authority"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/security"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/tokens"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/users"
)

// SelfIssuedAuthenticator accepts bearer tokens minted by this service.
// Grants come from the roles stored on the identity.
type SelfIssuedAuthenticator struct {
	codec *tokens.Codec
	users *users.Service
}

func NewSelfIssuedAuthenticator(c *tokens.Codec, u *users.Service) *SelfIssuedAuthenticator {
	return &SelfIssuedAuthenticator{codec: c, users: u}
}

// Authenticate verifies raw and loads its subject. A valid token whose
// subject is unknown yields an anonymous context and no error.
func (a *SelfIssuedAuthenticator) Authenticate(ctx context.Context, raw string) (*security.Context, error) {
	claims, err := a.codec.Verify(raw)
	if err != nil {
		return nil, err
	}
	u, err := a.users.GetBySub(ctx, claims.Subject)
	if errors.Is(err, users.ErrNotFound) {
		return security.Anonymous(), nil
	}
	if err != nil {
		return nil, err
	}
	return security.NewContext(u, authority.FromRoles(u.Roles)), nil
}

// ProviderAuthenticator accepts provider ID tokens directly as bearer
// credentials. Grants are mapped from the token's role claims and merged with
// the stored roles; the local identity is registered on first sight.
type ProviderAuthenticator struct {
	verifier ExternalVerifier
	users    *users.Service
}

func NewProviderAuthenticator(v ExternalVerifier, u *users.Service) *ProviderAuthenticator {
	return &ProviderAuthenticator{verifier: v, users: u}
}

func (a *ProviderAuthenticator) Authenticate(ctx context.Context, raw string) (*security.Context, error) {
	ext, err := verifyExternal(ctx, a.verifier, raw)
	if err != nil {
		return nil, err
	}
	grants := authority.Map(ext.RawClaims)
	u, _, err := a.users.FindOrCreate(ctx, profileOf(ext))
	if err != nil {
		return nil, err
	}
	return security.NewContext(u, grants.Union(authority.FromRoles(u.Roles))), nil
}
