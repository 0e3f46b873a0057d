// Package security carries the per-request authentication result and the
// route-level access requirements checked against it.
//
// A Context is created for every request by the authentication middleware
// and stored in the request's context.Context. Nothing in this package keeps
// process-wide state.
package security

import (
	"context"

	"github.com/pemaismais/Projeto-LerDort-backend/internal/authority"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
)

// Context is the resolved caller of one request. A nil Identity means the
// caller is anonymous.
type Context struct {
	Identity *models.User
	Grants   authority.Set
}

// Anonymous returns a context without identity or grants.
func Anonymous() *Context {
	return &Context{Grants: authority.Set{}}
}

// NewContext returns a context for u holding grants.
func NewContext(u *models.User, grants authority.Set) *Context {
	if grants == nil {
		grants = authority.Set{}
	}
	return &Context{Identity: u, Grants: grants}
}

func (c *Context) IsAuthenticated() bool {
	return c != nil && c.Identity != nil
}

// HasGrant reports whether the caller holds g ("ADMIN" or "ROLE_ADMIN").
func (c *Context) HasGrant(g string) bool {
	return c != nil && c.Grants.Has(authority.Grant(g))
}

// Subject returns the identity id, or "" when anonymous.
func (c *Context) Subject() string {
	if !c.IsAuthenticated() {
		return ""
	}
	return c.Identity.ID
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying sc.
func WithContext(ctx context.Context, sc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// FromContext returns the security context stored in ctx, or an anonymous
// one when none was stored.
func FromContext(ctx context.Context) *Context {
	if sc, ok := ctx.Value(ctxKey{}).(*Context); ok && sc != nil {
		return sc
	}
	return Anonymous()
}
