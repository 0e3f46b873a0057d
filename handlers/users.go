package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/security"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/logger"
)

// UserStore is the slice of users.Service the user endpoints need.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// MeResponse describes the caller.
type MeResponse struct {
	User   *models.User `json:"user"`
	Grants []string     `json:"grants"`
}

type UserHandler struct {
	users UserStore
}

func NewUserHandler(u UserStore) *UserHandler {
	return &UserHandler{users: u}
}

func (h *UserHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/api/v1/me", Access: security.Require(security.AuthenticatedOnly), Handler: h.Me},
		{Method: http.MethodGet, Path: "/api/v1/users/:id", Access: security.Require(security.AuthenticatedOnly), Handler: h.Get},
		{Method: http.MethodDelete, Path: "/api/v1/users/:id", Access: security.RequireGrant("ADMIN"), Handler: h.Delete},
	}
}

// Me returns the authenticated identity and its grants.
func (h *UserHandler) Me(c *gin.Context) {
	sc := security.FromContext(c.Request.Context())
	if !sc.IsAuthenticated() {
		respondError(c, security.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, MeResponse{User: sc.Identity, Grants: sc.Grants.List()})
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	logger.Infof("users: deleted id=%s by=%s", id, security.FromContext(c.Request.Context()).Subject())
	c.Status(http.StatusNoContent)
}
