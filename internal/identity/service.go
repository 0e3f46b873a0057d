// Package identity turns verified credentials into local identities: sign-in
// and refresh for the token endpoints, and the authenticators used by the
// request gateway.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/oidc"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/tokens"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/users"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/logger"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/metrics"
)

// ErrIdentityNotFound is returned by Refresh when the token's subject no
// longer maps to a stored identity.
var ErrIdentityNotFound = errors.New("identity not found")

// ExternalVerifier validates provider-issued identity tokens.
type ExternalVerifier interface {
	Verify(ctx context.Context, raw string) (*oidc.ExternalIdentity, error)
}

// Service runs sign-in and refresh.
type Service struct {
	verifier   ExternalVerifier
	users      *users.Service
	codec      *tokens.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(v ExternalVerifier, u *users.Service, c *tokens.Codec, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{verifier: v, users: u, codec: c, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// SignIn verifies a provider token, resolves or registers the identity for
// its subject and returns a fresh token pair. Verification failures are
// reported as oidc.ErrInvalidExternalToken.
func (s *Service) SignIn(ctx context.Context, externalToken string) (*tokens.Pair, error) {
	ext, err := verifyExternal(ctx, s.verifier, externalToken)
	if err != nil {
		metrics.SignIns.WithLabelValues("rejected").Inc()
		logger.Infof("sign-in rejected: %v", err)
		return nil, err
	}

	u, created, err := s.users.FindOrCreate(ctx, profileOf(ext))
	if err != nil {
		metrics.SignIns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve identity for sub=%s: %w", ext.Subject, err)
	}

	pair, err := s.issue(u)
	if err != nil {
		metrics.SignIns.WithLabelValues("error").Inc()
		return nil, err
	}
	outcome := "existing"
	if created {
		outcome = "created"
	}
	metrics.SignIns.WithLabelValues(outcome).Inc()
	logger.With("id", u.ID, "sub", u.Sub, "outcome", outcome).Info("sign-in")
	return pair, nil
}

// Refresh verifies a token minted by this service and returns a new pair for
// its subject. It never consults the external provider.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
		logger.Infof("token refresh rejected: %v", err)
		return nil, err
	}
	u, err := s.users.GetBySub(ctx, claims.Subject)
	if errors.Is(err, users.ErrNotFound) {
		metrics.TokenRefreshes.WithLabelValues("not_found").Inc()
		logger.Infof("token refresh rejected: no identity for sub=%s", claims.Subject)
		return nil, fmt.Errorf("%w: sub=%s", ErrIdentityNotFound, claims.Subject)
	}
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return nil, err
	}
	pair, err := s.issue(u)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	return pair, nil
}

func (s *Service) issue(u *models.User) (*tokens.Pair, error) {
	pair, err := s.codec.IssuePair(u, s.accessTTL, s.refreshTTL)
	if err != nil {
		logger.Errorf("token issue failed for id=%s: %v", u.ID, err)
		return nil, err
	}
	metrics.TokensIssued.WithLabelValues("access").Inc()
	metrics.TokensIssued.WithLabelValues("refresh").Inc()
	return pair, nil
}

// verifyExternal guarantees every failure carries oidc.ErrInvalidExternalToken.
func verifyExternal(ctx context.Context, v ExternalVerifier, raw string) (*oidc.ExternalIdentity, error) {
	ext, err := v.Verify(ctx, raw)
	if err != nil {
		if errors.Is(err, oidc.ErrInvalidExternalToken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", oidc.ErrInvalidExternalToken, err)
	}
	if ext == nil || ext.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", oidc.ErrInvalidExternalToken)
	}
	return ext, nil
}

func profileOf(ext *oidc.ExternalIdentity) users.Profile {
	return users.Profile{Sub: ext.Subject, Email: ext.Email, Name: ext.Name, Picture: ext.Picture}
}
