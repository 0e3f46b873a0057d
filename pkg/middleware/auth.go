package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/security"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/logger"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/metrics"
)

// Authenticator resolves a bearer token to a security context.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*security.Context, error)
}

// AuthOptions tunes Authenticate.
type AuthOptions struct {
	// Strict rejects requests carrying an invalid bearer token with 401
	// instead of treating them as anonymous.
	Strict bool
	// Timeout bounds a single authentication attempt.
	Timeout time.Duration
}

// bearerToken returns the credential of an "Authorization: Bearer <token>"
// header. present is false when there is no header or another scheme is used.
func bearerToken(header string) (token string, present bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, rest, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// Authenticate returns a Gin middleware that resolves the caller and stores
// the result in the request context. Without Strict it never rejects: a
// missing or failing credential leaves the request anonymous and route
// authorization decides.
func Authenticate(a Authenticator, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := security.Anonymous()
		if raw, ok := bearerToken(c.GetHeader("Authorization")); ok {
			ctx := c.Request.Context()
			var cancel context.CancelFunc = func() {}
			if opts.Timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			}
			resolved, err := a.Authenticate(ctx, raw)
			cancel()
			switch {
			case err != nil:
				metrics.AuthRequests.WithLabelValues("rejected").Inc()
				logger.Debugf("auth: bearer rejected path=%s: %v", c.FullPath(), err)
				if opts.Strict {
					AbortWithError(c, http.StatusUnauthorized, "invalid or expired token")
					return
				}
			case resolved.IsAuthenticated():
				metrics.AuthRequests.WithLabelValues("authenticated").Inc()
				sc = resolved
			default:
				// valid token, identity gone
				metrics.AuthRequests.WithLabelValues("anonymous").Inc()
			}
		} else {
			metrics.AuthRequests.WithLabelValues("anonymous").Inc()
		}
		c.Request = c.Request.WithContext(security.WithContext(c.Request.Context(), sc))
		c.Next()
	}
}

// Authorize returns a Gin middleware enforcing req against the security
// context set by Authenticate: 401 when an identity is needed and missing,
// 403 when a grant is missing.
func Authorize(req security.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := req.Check(security.FromContext(c.Request.Context()))
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, security.ErrUnauthenticated):
			metrics.AuthzDenied.WithLabelValues("unauthenticated").Inc()
			AbortWithError(c, http.StatusUnauthorized, "authentication required")
		default:
			metrics.AuthzDenied.WithLabelValues("forbidden").Inc()
			AbortWithError(c, http.StatusForbidden, "access denied")
		}
	}
}

// ErrorBody is the JSON error envelope used by every endpoint.
func ErrorBody(status int, message string) gin.H {
	return gin.H{"status": status, "error": http.StatusText(status), "message": message}
}

// AbortWithError aborts the request with ErrorBody.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody(status, message))
}
