package security

import (
	"errors"
	"fmt"

	"github.com/pemaismais/Projeto-LerDort-backend/internal/authority"
)

var (
	// ErrUnauthenticated means the route needs an identity and there is none.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the identity lacks the grant the route needs.
	ErrForbidden = errors.New("access denied")
)

// Access classifies a route.
type Access int

const (
	Public Access = iota
	AuthenticatedOnly
	RequiresGrant
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case AuthenticatedOnly:
		return "authenticated"
	case RequiresGrant:
		return "grant"
	}
	return "unknown"
}

// Requirement is the static access metadata attached to a route.
type Requirement struct {
	Access Access
	Grant  authority.Grant
}

// Require builds a requirement without a grant: Require(Public) or
// Require(AuthenticatedOnly).
func Require(a Access) Requirement { return Requirement{Access: a} }

// RequireGrant requires the named role, e.g. RequireGrant("ADMIN").
func RequireGrant(role string) Requirement {
	return Requirement{Access: RequiresGrant, Grant: authority.Normalize(role)}
}

func (r Requirement) String() string {
	if r.Access == RequiresGrant {
		return fmt.Sprintf("grant(%s)", r.Grant)
	}
	return r.Access.String()
}

// Check returns nil when sc satisfies r, ErrUnauthenticated when an identity
// is needed and missing, and ErrForbidden when the grant is missing.
func (r Requirement) Check(sc *Context) error {
	switch r.Access {
	case Public:
		return nil
	case AuthenticatedOnly:
		if !sc.IsAuthenticated() {
			return ErrUnauthenticated
		}
		return nil
	case RequiresGrant:
		if !sc.IsAuthenticated() {
			return ErrUnauthenticated
		}
		if r.Grant == "" || !sc.Grants.Has(r.Grant) {
			return fmt.Errorf("%w: missing %s", ErrForbidden, r.Grant)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown route classification", ErrForbidden)
}
