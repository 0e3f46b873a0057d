// Package authority turns role claims into a flat set of grants. Every grant
// carries the "ROLE_" prefix so authorization checks use one convention
// whatever the source of the role was.
package authority

import (
	"encoding/json"
	"sort"
	"strings"
)

// Prefix marks every grant.
const Prefix = "ROLE_"

// Grant is a single normalized permission, e.g. "ROLE_ADMIN".
type Grant string

// Set is an unordered, duplicate-free collection of grants. A Set is not
// modified after it has been handed to a request.
type Set map[Grant]struct{}

// NewSet builds a set from already normalized grants.
func NewSet(grants ...Grant) Set {
	s := make(Set, len(grants))
	for _, g := range grants {
		if g != "" {
			s[g] = struct{}{}
		}
	}
	return s
}

// Has reports whether g is in the set. g is normalized first, so Has("ADMIN")
// and Has("ROLE_ADMIN") agree.
func (s Set) Has(g Grant) bool {
	_, ok := s[Normalize(string(g))]
	return ok
}

func (s Set) Len() int { return len(s) }

// List returns the grants sorted.
func (s Set) List() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, string(g))
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the grants of both.
func (s Set) Union(o Set) Set {
	out := make(Set, len(s)+len(o))
	for g := range s {
		out[g] = struct{}{}
	}
	for g := range o {
		out[g] = struct{}{}
	}
	return out
}

// Normalize turns a role name into a grant. It is idempotent and returns ""
// for blank names.
func Normalize(role string) Grant {
	role = strings.TrimSpace(role)
	if role == "" {
		return ""
	}
	if strings.HasPrefix(role, Prefix) {
		if role == Prefix {
			return ""
		}
		return Grant(role)
	}
	return Grant(Prefix + role)
}

// FromRoles builds a set from stored role names.
func FromRoles(roles []string) Set {
	s := make(Set, len(roles))
	for _, r := range roles {
		if g := Normalize(r); g != "" {
			s[g] = struct{}{}
		}
	}
	return s
}

type rolesClaim struct {
	Roles []json.RawMessage `json:"roles"`
}

// Map reads realm_access.roles and resource_access.<client>.roles from a
// verified token payload. Each piece is parsed on its own; anything missing
// or of the wrong shape contributes no grants.
func Map(raw json.RawMessage) Set {
	out := Set{}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return out
	}
	if realm, ok := top["realm_access"]; ok {
		addRoles(out, realm)
	}
	if res, ok := top["resource_access"]; ok {
		var clients map[string]json.RawMessage
		if err := json.Unmarshal(res, &clients); err == nil {
			for _, c := range clients {
				addRoles(out, c)
			}
		}
	}
	return out
}

func addRoles(dst Set, raw json.RawMessage) {
	var rc rolesClaim
	if err := json.Unmarshal(raw, &rc); err != nil {
		return
	}
	for _, item := range rc.Roles {
		var name string
		if err := json.Unmarshal(item, &name); err != nil {
			continue
		}
		if g := Normalize(name); g != "" {
			dst[g] = struct{}{}
		}
	}
}
