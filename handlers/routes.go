package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/security"
	"github.com/pemaismais/Projeto-LerDort-backend/pkg/middleware"
)

// Route is one endpoint and the access it requires.
type Route struct {
	Method  string
	Path    string
	Access  security.Requirement
	Handler gin.HandlerFunc
}

// Register mounts routes on r, guarding each with its requirement. The
// security context must already be set by middleware.Authenticate.
func Register(r gin.IRoutes, routes []Route) {
	for _, rt := range routes {
		r.Handle(rt.Method, rt.Path, middleware.Authorize(rt.Access), rt.Handler)
	}
}
