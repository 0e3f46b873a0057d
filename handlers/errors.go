package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/identity"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/oidc"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/security"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/tokens"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/users"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/logger"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/middleware"
)

// statusFor maps a service error to an HTTP status and a message safe to
// show the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, oidc.ErrInvalidExternalToken):
		return http.StatusUnauthorized, "invalid identity token"
	case errors.Is(err, tokens.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, tokens.ErrTokenMalformed),
		errors.Is(err, tokens.ErrTokenBadSignature),
		errors.Is(err, tokens.ErrWrongIssuer):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, identity.ErrIdentityNotFound),
		errors.Is(err, security.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, security.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound, "user not found"
	}
	return http.StatusInternalServerError, "internal error"
}

// respondError writes the error body for err. Internal errors are logged,
// never echoed.
func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		logger.Debugf("%s %s: %d %v", c.Request.Method, c.FullPath(), status, err)
	}
	middleware.AbortWithError(c, status, msg)
}
