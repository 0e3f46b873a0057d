package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/authority"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/security"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBadToken = errors.New("bad token")

// fakeAuthenticator knows "goodtoken" (USER), "admintoken" (ADMIN) and
// "orphantoken" (valid but no stored identity). "slowtoken" blocks until the
// context is done.
type fakeAuthenticator struct{}

func (fakeAuthenticator) Authenticate(ctx context.Context, raw string) (*security.Context, error) {
	switch raw {
	case "goodtoken":
		u := &models.User{ID: "u-1", Sub: "google-1", Email: "test@example.com", Roles: []string{"USER"}}
		return security.NewContext(u, authority.FromRoles(u.Roles)), nil
	case "admintoken":
		u := &models.User{ID: "u-2", Sub: "google-2", Roles: []string{"USER", "ADMIN"}}
		return security.NewContext(u, authority.FromRoles(u.Roles)), nil
	case "orphantoken":
		return security.Anonymous(), nil
	case "slowtoken":
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, errBadToken
}

// whoami echoes the security context seen by the handler.
func whoami(c *gin.Context) {
	sc := security.FromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"authenticated": sc.IsAuthenticated(), "id": sc.Subject(), "grants": sc.Grants.List()})
}

func newRouter(opts AuthOptions, req security.Requirement) *gin.Engine {
	g := gin.New()
	g.Use(Authenticate(fakeAuthenticator{}, opts))
	g.GET("/", Authorize(req), whoami)
	return g
}

func do(t *testing.T, g *gin.Engine, authz string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	return rw, body
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		token   string
		present bool
	}{
		{"", "", false},
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer", "", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"BadHeader", "", false},
	}
	for _, tc := range cases {
		tok, ok := bearerToken(tc.header)
		assert.Equal(t, tc.token, tok, tc.header)
		assert.Equal(t, tc.present, ok, tc.header)
	}
}

func TestAuthenticate_PublicRouteWithoutCredentials(t *testing.T) {
	g := newRouter(AuthOptions{}, security.Require(security.Public))
	anon := testutil.ToFloat64(metrics.AuthRequests.WithLabelValues("anonymous"))

	rw, body := do(t, g, "")
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, anon+1, testutil.ToFloat64(metrics.AuthRequests.WithLabelValues("anonymous")))
}

func TestAuthenticate_InvalidTokenFailsOpen(t *testing.T) {
	g := newRouter(AuthOptions{}, security.Require(security.Public))
	rejected := testutil.ToFloat64(metrics.AuthRequests.WithLabelValues("rejected"))

	for _, h := range []string{"Bearer nonsense", "BadHeader", "Bearer "} {
		rw, body := do(t, g, h)
		require.Equal(t, http.StatusOK, rw.Code, h)
		assert.Equal(t, false, body["authenticated"], h)
	}
	// "BadHeader" is not a bearer credential and never reaches the authenticator
	assert.Equal(t, rejected+2, testutil.ToFloat64(metrics.AuthRequests.WithLabelValues("rejected")))
}

func TestAuthenticate_StrictRejectsInvalidToken(t *testing.T) {
	g := newRouter(AuthOptions{Strict: true}, security.Require(security.Public))

	rw, body := do(t, g, "Bearer nonsense")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	assert.Equal(t, float64(401), body["status"])
	assert.Equal(t, "Unauthorized", body["error"])

	// strict mode still lets credential-less requests through
	rw, _ = do(t, g, "")
	require.Equal(t, http.StatusOK, rw.Code)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	g := newRouter(AuthOptions{}, security.Require(security.AuthenticatedOnly))

	rw, body := do(t, g, "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "u-1", body["id"])
	assert.Equal(t, []any{"ROLE_USER"}, body["grants"])
}

func TestAuthenticate_OrphanTokenIsAnonymous(t *testing.T) {
	g := newRouter(AuthOptions{Strict: true}, security.Require(security.AuthenticatedOnly))

	rw, _ := do(t, g, "Bearer orphantoken")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthenticate_Timeout(t *testing.T) {
	g := newRouter(AuthOptions{Timeout: 20 * time.Millisecond}, security.Require(security.Public))

	start := time.Now()
	rw, body := do(t, g, "Bearer slowtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, false, body["authenticated"])
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAuthorize(t *testing.T) {
	g := newRouter(AuthOptions{}, security.RequireGrant("ADMIN"))
	forbidden := testutil.ToFloat64(metrics.AuthzDenied.WithLabelValues("forbidden"))
	unauth := testutil.ToFloat64(metrics.AuthzDenied.WithLabelValues("unauthenticated"))

	rw, body := do(t, g, "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	assert.Equal(t, "authentication required", body["message"])

	rw, body = do(t, g, "Bearer goodtoken")
	require.Equal(t, http.StatusForbidden, rw.Code)
	assert.Equal(t, "Forbidden", body["error"])

	rw, body = do(t, g, "Bearer admintoken")
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "u-2", body["id"])

	assert.Equal(t, forbidden+1, testutil.ToFloat64(metrics.AuthzDenied.WithLabelValues("forbidden")))
	assert.Equal(t, unauth+1, testutil.ToFloat64(metrics.AuthzDenied.WithLabelValues("unauthenticated")))
}

func TestAuthorize_WithoutAuthenticate(t *testing.T) {
	// no Authenticate in the chain: the context is anonymous, never a panic
	g := gin.New()
	g.GET("/", Authorize(security.Require(security.AuthenticatedOnly)), whoami)
	rw, _ := do(t, g, "Bearer goodtoken")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}
