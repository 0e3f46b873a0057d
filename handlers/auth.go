package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/security"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/tokens"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/middleware"
)

// LoginRequest carries the ID token obtained from the identity provider.
type LoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// RefreshRequest carries a refresh token minted by this service.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// IdentityService is the sign-in and refresh surface used by AuthHandler.
type IdentityService interface {
	SignIn(ctx context.Context, externalToken string) (*tokens.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error)
}

// AuthHandler serves the token endpoints.
type AuthHandler struct {
	identity IdentityService
}

func NewAuthHandler(s IdentityService) *AuthHandler {
	return &AuthHandler{identity: s}
}

// Routes returns the public token endpoints under /api/auth.
func (h *AuthHandler) Routes() []Route {
	public := security.Require(security.Public)
	return []Route{
		{Method: http.MethodPost, Path: "/api/auth/login", Access: public, Handler: h.Login},
		{Method: http.MethodPost, Path: "/api/auth/refreshToken", Access: public, Handler: h.Refresh},
	}
}

// Login exchanges a provider ID token for a token pair, registering the
// user on first sign-in.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "idToken is required")
		return
	}
	pair, err := h.identity.SignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh accepts a refresh token and returns a new token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "refreshToken is required")
		return
	}
	pair, err := h.identity.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}
